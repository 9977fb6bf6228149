package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"storeA|pw1||rtA|pw2",
		"",
		"  iot-b|pw3||rtB|pw4  \r",
		"missing-report-half|pw",
		"a|b|c||d|e",
		"a|||c|d",
		"|pw||rt|pw",
		"x|y||z|w||extra|1",
	}, "\n")

	accounts, errs := Parse(strings.NewReader(input))

	require.Len(t, accounts, 2)
	assert.Equal(t, "storeA", accounts[0].PortalUserID)
	assert.Equal(t, "pw1", accounts[0].PortalPassword)
	assert.Equal(t, "rtA", accounts[0].ReportUserID)
	assert.Equal(t, "pw2", accounts[0].ReportPassword)
	assert.Equal(t, 1, accounts[0].Line)

	assert.Equal(t, "iot-b", accounts[1].PortalUserID)
	assert.Equal(t, "pw4", accounts[1].ReportPassword)
	assert.Equal(t, 3, accounts[1].Line)

	require.Len(t, errs, 5)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrMalformedLine)
	}

	var lineErr *LineError
	require.ErrorAs(t, errs[0], &lineErr)
	assert.Equal(t, 4, lineErr.Line)
	assert.Contains(t, errs[3].Error(), "PortalUserID")
}

func TestParseKeepsPasswordsVerbatim(t *testing.T) {
	accounts, errs := Parse(strings.NewReader(" storeA | pass word ||rtA|  pw2\n"))
	require.Empty(t, errs)
	require.Len(t, accounts, 1)

	assert.Equal(t, "storeA", accounts[0].PortalUserID)
	assert.Equal(t, " pass word ", accounts[0].PortalPassword)
	assert.Equal(t, "rtA", accounts[0].ReportUserID)
	assert.Equal(t, "  pw2", accounts[0].ReportPassword)
}

func TestParseErrorsOmitPasswords(t *testing.T) {
	_, errs := Parse(strings.NewReader("user|s3cret|extra||rt|pw"))
	require.Len(t, errs, 1)
	assert.NotContains(t, errs[0].Error(), "s3cret")
}

func TestParseFile(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cred.txt")
		require.NoError(t, os.WriteFile(path, []byte("u|p||r|q\n"), 0600))

		accounts, errs := ParseFile(path)
		assert.Empty(t, errs)
		require.Len(t, accounts, 1)
		assert.Equal(t, "r", accounts[0].ReportUserID)
	})

	t.Run("missing file", func(t *testing.T) {
		accounts, errs := ParseFile(filepath.Join(t.TempDir(), "absent.txt"))
		assert.Empty(t, accounts)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], os.ErrNotExist)
	})
}
