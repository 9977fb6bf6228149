// Package credentials reads the account list. Each non-blank line holds a
// dealer-portal login and a report-portal login:
//
//	portalUser|portalPassword||reportUser|reportPassword
//
// Surrounding whitespace is stripped from each line and from user ids.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"idoosync/pkg/contracts/domain"
)

// ErrMalformedLine marks a line that does not have the four-field shape
var ErrMalformedLine = errors.New("malformed credential line")

// LineError reports why one line was rejected. It never carries passwords.
type LineError struct {
	Line   int
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, ErrMalformedLine, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedLine
func (e *LineError) Unwrap() error {
	return ErrMalformedLine
}

var validate = validator.New()

// Parse reads accounts from r. Malformed lines are returned as errors and
// skipped; the remaining accounts are returned in file order.
func Parse(r io.Reader) ([]domain.Account, []error) {
	var (
		accounts []domain.Account
		errs     []error
	)

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		account, err := parseLine(line, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		accounts = append(accounts, account)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("read credentials: %w", err))
	}
	return accounts, errs
}

// ParseFile opens path and parses it. A missing or unreadable file is
// returned as the only error.
func ParseFile(path string) ([]domain.Account, []error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, []error{fmt.Errorf("open credentials file: %w", err)}
	}
	defer f.Close()
	return Parse(f)
}

func parseLine(line string, n int) (domain.Account, error) {
	halves := strings.Split(line, "||")
	if len(halves) != 2 {
		return domain.Account{}, &LineError{Line: n, Reason: fmt.Sprintf("expected 2 logins separated by ||, got %d", len(halves))}
	}

	portal := strings.Split(halves[0], "|")
	report := strings.Split(halves[1], "|")
	if len(portal) != 2 || len(report) != 2 {
		return domain.Account{}, &LineError{Line: n, Reason: "each login must be user|password"}
	}

	// passwords are taken verbatim; spaces may be part of them
	account := domain.Account{
		PortalUserID:   strings.TrimSpace(portal[0]),
		PortalPassword: portal[1],
		ReportUserID:   strings.TrimSpace(report[0]),
		ReportPassword: report[1],
		Line:           n,
	}
	if err := validate.Struct(account); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.Account{}, &LineError{Line: n, Reason: "empty field " + verrs[0].Field()}
		}
		return domain.Account{}, &LineError{Line: n, Reason: err.Error()}
	}
	return account, nil
}
