package service

import (
	"context"
	"strings"
	"time"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/mail"
)

// Mailer queues an email without waiting for delivery.
type Mailer interface {
	Dispatch(msg mail.Message)
}

// Throttler admits at most one action per key per window.
type Throttler interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RouteClass names which email domains may use a route.
type RouteClass int

const (
	ClassUser RouteClass = iota
	ClassAdmin
	ClassAny
)

func (c RouteClass) String() string {
	switch c {
	case ClassUser:
		return "user"
	case ClassAdmin:
		return "admin"
	default:
		return "any"
	}
}

const dateLayout = "2006-01-02"

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

// trimOptional turns blank optional text into nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
