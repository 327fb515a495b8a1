package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/projectauth/pkg/logger"
	"github.com/dmitrymomot/projectauth/pkg/qrcode"
	"github.com/dmitrymomot/projectauth/pkg/totp"
)

// Enrollment is the result of BeginEnrollment.
type Enrollment struct {
	// QRCode is a PNG data URL of the provisioning URI.
	QRCode string
	// Secret is the base32 secret for manual entry.
	Secret string
	// Staged is the encrypted payload to keep in the staged-secret slot.
	Staged    string
	ExpiresAt time.Time
}

// stagedPayload is what the staged-secret slot holds once decrypted.
type stagedPayload struct {
	ID        string `json:"jti"`
	UserID    string `json:"uid"`
	Secret    string `json:"sec"`
	ExpiresAt int64  `json:"exp"`
}

// TOTPService drives the Disabled, Staged, Enabled state machine.
type TOTPService struct {
	keys  *Keys
	store UserStore
	opts  options
}

// NewTOTPService creates the service.
func NewTOTPService(keys *Keys, store UserStore, opts ...Option) *TOTPService {
	return &TOTPService{keys: keys, store: store, opts: applyOptions(opts)}
}

// BeginEnrollment generates a new secret for the caller. Nothing is written
// to the user record.
func (s *TOTPService) BeginEnrollment(ctx context.Context, caller Identity, userID string) (*Enrollment, error) {
	if s.keys == nil {
		return nil, ErrConfig
	}
	if caller.UserID == "" || caller.UserID != userID {
		return nil, ErrUnauthorized
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment: %w", err)
	}
	if user.TOTP.Enabled() {
		return nil, ErrAlreadyEnabled
	}

	key, err := totp.GenerateSecret(totp.SecretParams{
		Issuer:      s.keys.cfg.TOTPIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("begin enrollment: %w", err)
	}

	qr, err := qrcode.DataURL(key.URI)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment: %w", err)
	}

	encrypted, err := s.keys.cipher.Encrypt(key.Secret)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment: %w", err)
	}

	factor := StagedTOTP(encrypted, s.opts.now().Add(s.keys.cfg.TOTPSetupTTL).Truncate(time.Second))
	staged, err := s.seal(uuid.NewString(), userID, factor)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment: %w", err)
	}

	s.opts.logger.DebugContext(ctx, "totp enrollment staged",
		logger.Component("totp"),
		logger.UserID(userID),
	)
	return &Enrollment{
		QRCode:    qr,
		Secret:    key.Secret,
		Staged:    staged,
		ExpiresAt: factor.ExpiresAt(),
	}, nil
}

// CompleteEnrollment persists the staged secret when code is valid for it.
// The staged payload is single-use: with a denylist it is consumed by the
// first attempt whatever the outcome, and later attempts fail with
// ErrSetupExpired. Callers must discard it too.
func (s *TOTPService) CompleteEnrollment(ctx context.Context, caller Identity, userID, staged, code string) error {
	if s.keys == nil {
		return ErrConfig
	}
	if caller.UserID == "" || caller.UserID != userID {
		return ErrUnauthorized
	}
	log := s.opts.logger.With(logger.Component("totp"), logger.Event("complete_enrollment"), logger.UserID(userID))

	factor, stageID, err := s.open(userID, staged)
	if err != nil {
		log.WarnContext(ctx, "staged secret rejected", logger.Error(err))
		return err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("complete enrollment: %w", err)
	}
	if user.TOTP.Enabled() {
		return ErrAlreadyEnabled
	}

	if err := s.consume(ctx, stageID, factor.ExpiresAt()); err != nil {
		if errors.Is(err, ErrSetupExpired) {
			log.WarnContext(ctx, "staged secret replayed")
		}
		return err
	}

	secret, err := s.keys.cipher.Decrypt(factor.Ciphertext())
	if err != nil {
		return errors.Join(ErrSetupExpired, ErrDecryption, err)
	}

	if err := s.checkCode(code, secret); err != nil {
		log.WarnContext(ctx, "enrollment code rejected")
		return err
	}

	persisted, _ := factor.Promote()
	if err := s.store.EnableTOTP(ctx, userID, persisted.Ciphertext()); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		log.ErrorContext(ctx, "failed to persist totp secret", logger.Error(err))
		return errors.Join(ErrUpdateFailed, err)
	}

	log.InfoContext(ctx, "totp enabled")
	return nil
}

// Disable removes the TOTP factor. The password is always required; the
// code is checked when given and required under WithRequireTOTPCode.
func (s *TOTPService) Disable(ctx context.Context, caller Identity, userID, password, code string) error {
	if s.keys == nil {
		return ErrConfig
	}
	if caller.UserID == "" || caller.UserID != userID {
		return ErrUnauthorized
	}
	log := s.opts.logger.With(logger.Component("totp"), logger.Event("disable"), logger.UserID(userID))

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("disable totp: %w", err)
	}
	if !user.TOTP.Enabled() {
		return ErrNotEnabled
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		log.WarnContext(ctx, "disable rejected: wrong password")
		return err
	}

	switch {
	case code != "":
		if err := s.verifyPersisted(user, code); err != nil {
			log.WarnContext(ctx, "disable rejected: code", logger.Error(err))
			return err
		}
	case s.opts.requireTOTPCode:
		return ErrCodeRequired
	}

	if err := s.store.DisableTOTP(ctx, userID); err != nil {
		log.ErrorContext(ctx, "failed to disable totp", logger.Error(err))
		return errors.Join(ErrUpdateFailed, err)
	}

	log.InfoContext(ctx, "totp disabled")
	return nil
}

// verifyPersisted checks code against the user's stored secret.
func (s *TOTPService) verifyPersisted(user *User, code string) error {
	if !user.TOTP.Enabled() {
		return ErrNotEnabled
	}
	secret, err := s.keys.cipher.Decrypt(user.TOTP.Ciphertext())
	if err != nil {
		return errors.Join(ErrDecryption, err)
	}
	return s.checkCode(code, secret)
}

func (s *TOTPService) checkCode(code, secret string) error {
	ok, err := totp.ValidateAt(code, secret, s.opts.now())
	switch {
	case errors.Is(err, totp.ErrInvalidCode):
		return ErrInvalidCode
	case err != nil:
		return errors.Join(ErrDecryption, err)
	case !ok:
		return ErrInvalidCode
	}
	return nil
}

// consume marks a staging as used. The first caller wins; every other one
// gets ErrSetupExpired.
func (s *TOTPService) consume(ctx context.Context, stageID string, until time.Time) error {
	if s.opts.denylist == nil {
		return nil
	}
	if err := checkDenylist(ctx, s.opts.denylist, stageID); err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return ErrSetupExpired
		}
		return fmt.Errorf("complete enrollment: %w", err)
	}
	if err := s.opts.denylist.Revoke(ctx, stageID, until); err != nil {
		return fmt.Errorf("consume staged secret: %w", err)
	}
	return nil
}

// seal encrypts a staged factor bound to userID.
func (s *TOTPService) seal(stageID, userID string, factor TOTPFactor) (string, error) {
	raw, err := json.Marshal(stagedPayload{
		ID:        stageID,
		UserID:    userID,
		Secret:    factor.Ciphertext(),
		ExpiresAt: factor.ExpiresAt().Unix(),
	})
	if err != nil {
		return "", err
	}
	return s.keys.cipher.Encrypt(string(raw))
}

// open decrypts and checks a staged payload.
func (s *TOTPService) open(userID, staged string) (TOTPFactor, string, error) {
	if staged == "" {
		return TOTPFactor{}, "", ErrSetupExpired
	}

	raw, err := s.keys.cipher.Decrypt(staged)
	if err != nil {
		return TOTPFactor{}, "", errors.Join(ErrSetupExpired, ErrDecryption, err)
	}

	var p stagedPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.Secret == "" || p.ID == "" {
		return TOTPFactor{}, "", errors.Join(ErrSetupExpired, ErrDecryption)
	}
	if p.UserID != userID {
		return TOTPFactor{}, "", ErrUnauthorized
	}

	expiresAt := time.Unix(p.ExpiresAt, 0).UTC()
	if !s.opts.now().Before(expiresAt) {
		return TOTPFactor{}, "", ErrSetupExpired
	}
	return StagedTOTP(p.Secret, expiresAt), p.ID, nil
}
