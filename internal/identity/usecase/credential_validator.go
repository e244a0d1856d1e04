package usecase

import (
	"context"
	"log/slog"

	"taskman/internal/identity/domain"
)

// CredentialValidator is the bridge between the token endpoint and the
// resource service's credential store. Every failure mode — wrong password,
// unreachable upstream, stale machine token — collapses into the same
// generic denial; the distinction lives only in the logs.
type CredentialValidator struct {
	tokens  TokenSource
	checker CredentialChecker
	logger  *slog.Logger
}

func NewCredentialValidator(tokens TokenSource, checker CredentialChecker, logger *slog.Logger) *CredentialValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialValidator{tokens: tokens, checker: checker, logger: logger}
}

// Validate performs one login attempt: acquire a machine token, call the
// credential check endpoint, map the result to a grant.
func (v *CredentialValidator) Validate(ctx context.Context, identifier, secret string) domain.Grant {
	machineToken, err := v.tokens.Token(ctx)
	if err != nil {
		v.logger.Error("credential validation aborted: no machine token", "err", err)
		return domain.DeniedGrant()
	}

	result, err := v.checker.Check(ctx, machineToken.AccessToken, identifier, secret)
	if err != nil {
		v.logger.Error("credential check call failed", "err", err)
		return domain.DeniedGrant()
	}

	if !result.IsValid || result.UserID == "" {
		v.logger.Warn("credential validation rejected", "identifier", identifier)
		return domain.DeniedGrant()
	}

	v.logger.Info("credential validation succeeded", "subject", result.UserID)
	return domain.Grant{
		Valid:       true,
		PrincipalID: result.UserID,
		Name:        result.Name,
		Email:       result.Email,
	}
}
