package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophguard/internal/breach"
	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/strength"
)

// BreachChecker is the part of breach.Oracle the security checks need.
type BreachChecker interface {
	CheckPassword(ctx context.Context, password string) breach.PasswordReport
	CheckEmail(ctx context.Context, email string) breach.EmailReport
}

// PasswordCheck combines the local strength score with breach exposure.
type PasswordCheck struct {
	Strength strength.Report
	Breach   breach.PasswordReport
}

// SecurityService answers password and email checks. It never stores or
// logs the values it is asked about.
type SecurityService struct {
	oracle BreachChecker
}

func NewSecurityService(oracle BreachChecker) *SecurityService {
	return &SecurityService{oracle: oracle}
}

// CheckPassword scores password locally and looks it up by hash prefix.
// An unreachable oracle yields a report with Breach.Offline set.
func (s *SecurityService) CheckPassword(ctx context.Context, password string) (PasswordCheck, error) {
	if password == "" {
		return PasswordCheck{}, fmt.Errorf("%w: password is empty", common.ErrorValidation)
	}
	return PasswordCheck{
		Strength: strength.Score(password),
		Breach:   s.oracle.CheckPassword(ctx, password),
	}, nil
}

// CheckEmail lists known breaches of the account.
func (s *SecurityService) CheckEmail(ctx context.Context, email string) (breach.EmailReport, error) {
	if !strings.Contains(email, "@") {
		return breach.EmailReport{}, fmt.Errorf("%w: email is invalid", common.ErrorValidation)
	}
	return s.oracle.CheckEmail(ctx, email), nil
}
