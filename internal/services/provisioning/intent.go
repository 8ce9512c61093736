package provisioning

import (
	"errors"
	"fmt"
	"strconv"
)

// Ключи метаданных сессии оплаты.
const (
	MetaExistingUser = "existingUser"
	MetaUserID       = "userId"
	MetaPlanID       = "planId"
	MetaEmail        = "email"
)

// ErrInvalidMetadata метаданные сессии не описывают ни один сценарий оплаты.
var ErrInvalidMetadata = errors.New("invalid checkout metadata")

// IntentKind вид сценария оплаты.
type IntentKind string

// Виды сценариев оплаты.
const (
	KindExistingUser IntentKind = "existing_user"
	KindNewSignup    IntentKind = "new_signup"
)

// Intent сценарий, ради которого создавалась сессия оплаты.
// Реализации: ExistingUser и NewSignup.
type Intent interface {
	Kind() IntentKind
	intent()
}

// ExistingUser оплата тарифа уже зарегистрированным пользователем.
type ExistingUser struct {
	UserID int64
	PlanID int64
}

// Kind реализует Intent.
func (ExistingUser) Kind() IntentKind { return KindExistingUser }
func (ExistingUser) intent()          {}

// NewSignup оплата при регистрации. Данные аккаунта лежат в незавершённой
// регистрации с тем же идентификатором сессии.
type NewSignup struct {
	SessionID string
}

// Kind реализует Intent.
func (NewSignup) Kind() IntentKind { return KindNewSignup }
func (NewSignup) intent()          {}

// DecodeIntent разбирает метаданные сессии один раз на входе в подтверждение оплаты.
func DecodeIntent(sessionID string, metadata map[string]string) (Intent, error) {
	if metadata[MetaExistingUser] != "true" {
		if sessionID == "" {
			return nil, fmt.Errorf("%w: empty session id", ErrInvalidMetadata)
		}
		return NewSignup{SessionID: sessionID}, nil
	}

	userID, err := strconv.ParseInt(metadata[MetaUserID], 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: bad %s %q", ErrInvalidMetadata, MetaUserID, metadata[MetaUserID])
	}
	planID, err := strconv.ParseInt(metadata[MetaPlanID], 10, 64)
	if err != nil || planID <= 0 {
		return nil, fmt.Errorf("%w: bad %s %q", ErrInvalidMetadata, MetaPlanID, metadata[MetaPlanID])
	}
	return ExistingUser{UserID: userID, PlanID: planID}, nil
}

// ExistingUserMetadata метаданные сессии для оплаты существующим пользователем.
func ExistingUserMetadata(userID, planID int64) map[string]string {
	return map[string]string{
		MetaUserID:       strconv.FormatInt(userID, 10),
		MetaPlanID:       strconv.FormatInt(planID, 10),
		MetaExistingUser: "true",
	}
}

// NewSignupMetadata метаданные сессии для оплаты при регистрации.
func NewSignupMetadata(email string, planID int64) map[string]string {
	return map[string]string{
		MetaEmail:  email,
		MetaPlanID: strconv.FormatInt(planID, 10),
	}
}
