// Package storage содержит общие ошибки слоя хранения.
package storage

import "errors"

// ErrDuplicate запись нарушает ограничение уникальности.
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound изменяемая запись не найдена.
var ErrNotFound = errors.New("record not found")
