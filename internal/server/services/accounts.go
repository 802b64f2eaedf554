package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/questkeeper/internal/common"
	"github.com/dmitrijs2005/questkeeper/internal/cryptox"
	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/server/config"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/dmitrijs2005/questkeeper/internal/server/repositories/repomanager"
	"github.com/samber/oops"
)

// Notification templates understood by a Notifier.
const (
	TemplateActivation = "activation"
	TemplateReset      = "reset"
)

// Notifier delivers a templated message to an email address.
// vars always carries "name" and "activation_code".
type Notifier interface {
	Notify(ctx context.Context, to, template string, vars map[string]any) error
}

// TokenIssuer issues bearer tokens for a subject and verifies them.
type TokenIssuer interface {
	Issue(subject string) (string, error)
	Verify(token string) (string, error)
}

type AccountService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	hasher       cryptox.PasswordHasher
	tokens       TokenIssuer
	notifier     Notifier
	strictTokens bool
	newCode      func() (string, error)
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher,
	tokens TokenIssuer, notifier Notifier, cfg *config.Config) *AccountService {
	return &AccountService{
		db:           db,
		repomanager:  m,
		hasher:       hasher,
		tokens:       tokens,
		notifier:     notifier,
		strictTokens: cfg.StrictTokens,
		newCode:      common.MakeActivationCode,
	}
}

// Register creates an inactive account and mails its activation code.
// An inactive account with the same email is replaced together with its
// progress; an active one makes the call fail with ErrDuplicateAccount.
// The returned user carries Email and TempToken for the confirmation step.
func (s *AccountService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	token, err := s.tokens.Issue(hash)
	if err != nil {
		return nil, oops.Code("TOKEN_ISSUE_FAILED").Wrap(err)
	}
	tempToken, err := s.tokens.Issue(email)
	if err != nil {
		return nil, oops.Code("TOKEN_ISSUE_FAILED").Wrap(err)
	}
	code, err := s.newCode()
	if err != nil {
		return nil, oops.Code("ACTIVATION_CODE_FAILED").Wrap(err)
	}

	user := &models.User{
		Email:          email,
		Name:           name,
		HashedPassword: hash,
		Token:          token,
		TempToken:      tempToken,
		ActivationCode: code,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		existing, err := repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if existing.IsActive {
				return common.ErrDuplicateAccount
			}
			if err := s.repomanager.Progress(tx).DeleteByUser(ctx, existing.ID); err != nil {
				return oops.Code("PROGRESS_DELETE_FAILED").With("user_id", existing.ID).Wrap(err)
			}
			// a concurrent registration may already have removed the stale row
			if err := repo.Delete(ctx, existing.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
				return oops.Code("USER_DELETE_FAILED").With("user_id", existing.ID).Wrap(err)
			}
		case errors.Is(err, common.ErrorNotFound):
		default:
			return oops.Code("USER_LOOKUP_FAILED").With("email", email).Wrap(err)
		}

		if _, err := repo.Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrDuplicateAccount
			}
			return oops.Code("USER_CREATE_FAILED").With("email", email).Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.notify(ctx, user, TemplateActivation); err != nil {
		return nil, err
	}

	return user, nil
}

// ConfirmRegistration activates the account owning tempToken when code matches.
func (s *AccountService) ConfirmRegistration(ctx context.Context, tempToken, code string) error {
	repo := s.repomanager.Users(s.db)

	user, err := s.byTempToken(ctx, tempToken)
	if err != nil {
		return err
	}
	if !codeMatches(user.ActivationCode, code) {
		return common.ErrInvalidActivationCode
	}
	if user.IsActive {
		return nil
	}

	user.IsActive = true
	if err := repo.Update(ctx, user); err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrap(err)
	}
	return nil
}

// Login checks the credentials and returns the account with its session token.
// With strict tokens an expired stored token is replaced by a fresh one.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").With("email", email).Wrap(err)
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, common.ErrAccountNotActive
	}

	if s.strictTokens {
		if _, err := s.tokens.Verify(user.Token); err != nil {
			token, err := s.tokens.Issue(user.HashedPassword)
			if err != nil {
				return nil, oops.Code("TOKEN_ISSUE_FAILED").Wrap(err)
			}
			user.Token = token
			if err := repo.Update(ctx, user); err != nil {
				return nil, oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrap(err)
			}
		}
	}

	return user, nil
}

// RequestPasswordReset issues a new temp token and code and mails the code.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	repo := s.repomanager.Users(s.db)

	user, err := s.byEmail(ctx, email)
	if err != nil {
		return err
	}

	tempToken, err := s.tokens.Issue(email)
	if err != nil {
		return oops.Code("TOKEN_ISSUE_FAILED").Wrap(err)
	}
	code, err := s.newCode()
	if err != nil {
		return oops.Code("ACTIVATION_CODE_FAILED").Wrap(err)
	}

	user.TempToken = tempToken
	user.ActivationCode = code
	if err := repo.Update(ctx, user); err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrap(err)
	}

	return s.notify(ctx, user, TemplateReset)
}

// ConfirmResetCode checks the mailed code and returns the account with the
// temp token to be used by SetNewPassword. A matching code also activates
// the account.
func (s *AccountService) ConfirmResetCode(ctx context.Context, email, code string) (*models.User, error) {
	user, err := s.byEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !codeMatches(user.ActivationCode, code) {
		return nil, common.ErrInvalidActivationCode
	}
	if user.IsActive {
		return user, nil
	}

	user.IsActive = true
	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return nil, oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrap(err)
	}
	return user, nil
}

// SetNewPassword stores a new password for the owner of tempToken and rotates
// the session token. The temp token is consumed and the code replaced by one
// that was never sent, so neither can be replayed.
func (s *AccountService) SetNewPassword(ctx context.Context, tempToken, password string) error {
	user, err := s.byTempToken(ctx, tempToken)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	token, err := s.tokens.Issue(hash)
	if err != nil {
		return oops.Code("TOKEN_ISSUE_FAILED").Wrap(err)
	}
	code, err := s.newCode()
	if err != nil {
		return oops.Code("ACTIVATION_CODE_FAILED").Wrap(err)
	}

	user.HashedPassword = hash
	user.Token = token
	user.TempToken = ""
	user.ActivationCode = code
	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrap(err)
	}
	return nil
}

// Authenticate resolves a session token to its active account.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").Wrap(err)
	}
	if err := s.verifyToken(token); err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, common.ErrAccountNotActive
	}
	return user, nil
}

func (s *AccountService) GetSelf(ctx context.Context, token string) (*models.User, error) {
	return s.Authenticate(ctx, token)
}

// UpdateSelf applies the non-empty fields of patch. The session token is kept
// even when the password changes.
func (s *AccountService) UpdateSelf(ctx context.Context, token string, patch models.UserPatch) (*models.User, error) {
	user, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	if patch.Name != "" {
		user.Name = patch.Name
	}
	if patch.Email != "" {
		user.Email = patch.Email
	}
	if patch.Password != "" {
		hash, err := s.hasher.Hash(patch.Password)
		if err != nil {
			return nil, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
		}
		user.HashedPassword = hash
	}

	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrDuplicateAccount
		}
		return nil, oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrap(err)
	}
	return user, nil
}

// DeleteSelf removes the account and its progress in one transaction.
func (s *AccountService) DeleteSelf(ctx context.Context, token string) error {
	user, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Progress(tx).DeleteByUser(ctx, user.ID); err != nil {
			return oops.Code("PROGRESS_DELETE_FAILED").With("user_id", user.ID).Wrap(err)
		}
		if err := s.repomanager.Users(tx).Delete(ctx, user.ID); err != nil {
			return oops.Code("USER_DELETE_FAILED").With("user_id", user.ID).Wrap(err)
		}
		return nil
	})
}

func (s *AccountService) byEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccountNotFound
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").With("email", email).Wrap(err)
	}
	return user, nil
}

func (s *AccountService) byTempToken(ctx context.Context, tempToken string) (*models.User, error) {
	if tempToken == "" {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByTempToken(ctx, tempToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").Wrap(err)
	}
	if err := s.verifyToken(tempToken); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccountService) verifyToken(token string) error {
	if !s.strictTokens {
		return nil
	}
	if _, err := s.tokens.Verify(token); err != nil {
		return common.ErrInvalidToken
	}
	return nil
}

func (s *AccountService) notify(ctx context.Context, user *models.User, template string) error {
	vars := map[string]any{
		"name":            user.Name,
		"activation_code": user.ActivationCode,
	}
	if err := s.notifier.Notify(ctx, user.Email, template, vars); err != nil {
		return oops.Code("NOTIFY_FAILED").With("email", user.Email, "template", template).Wrap(err)
	}
	return nil
}

func codeMatches(stored, submitted string) bool {
	return stored != "" && stored == submitted
}
