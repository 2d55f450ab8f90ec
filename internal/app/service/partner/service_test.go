package partner

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestMakeSlug(t *testing.T) {
	require.Equal(t, "acme-fitness-club", MakeSlug("  Acme Fitness Club! "))
	require.Equal(t, "cafe-muller", MakeSlug("Café Müller"))

	long := MakeSlug(strings.Repeat("partner ", 20))
	require.LessOrEqual(t, len(long), maxSlugLength)
	require.False(t, strings.HasSuffix(long, "-"))
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := generateAPIKey()
	require.NoError(t, err)
	b, err := generateAPIKey()
	require.NoError(t, err)
	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
}

func TestParseImportCSV(t *testing.T) {
	in := strings.Join([]string{
		"CustomerEmail,Duration,Status",
		"  Alice@Example.com ,30,pending",
		"bob@example.com,,",
		"not-an-email,10,pending",
		"carol@example.com,-5,pending",
		"dave@example.com,10,active",
		",,",
		"alice@example.com,30,pending",
	}, "\n")

	rows, rowErrors, err := parseImportCSV(strings.NewReader(in), validator.New())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "alice@example.com", rows[0].email)
	require.Equal(t, 30, rows[0].duration)
	require.Equal(t, 2, rows[0].line)
	require.Equal(t, "bob@example.com", rows[1].email)
	require.Equal(t, 0, rows[1].duration)

	require.Len(t, rowErrors, 4)
	require.Equal(t, 4, rowErrors[0].Row)
	require.Contains(t, rowErrors[1].Error, "duration")
	require.Contains(t, rowErrors[2].Error, "status must be pending")
	require.Equal(t, "duplicate email in file", rowErrors[3].Error)
	require.Equal(t, 8, rowErrors[3].Row)
}

func TestParseImportCSV_BadHeader(t *testing.T) {
	_, _, err := parseImportCSV(strings.NewReader("email,duration\na@x.com,3"), validator.New())
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = parseImportCSV(strings.NewReader(""), validator.New())
	require.ErrorIs(t, err, ErrValidation)
}
