package querytemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexustables/managedtable/internal/apperrors"
)

func TestNewRejectsReservedRunDayField(t *testing.T) {
	_, err := New("select 1", map[string]any{"run_day": "2024-01-01"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsTemplateError(err))
}

func TestNewRejectsUndeclaredField(t *testing.T) {
	_, err := New("select * from {{ table_name }}", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsTemplateError(err))
}

func TestNewAcceptsEnvFieldOverridingUserField(t *testing.T) {
	tmpl, err := New(
		"select '{{ env_name }}' as name",
		map[string]any{"env_name": "from-env"},
		map[string]any{"env_name": "from-user"},
	)
	require.NoError(t, err)

	out, err := tmpl.Render("2024-01-01", nil)
	require.NoError(t, err)
	assert.Equal(t, "select 'from-env' as name", out)
}

func TestRenderSubstitutesRunDay(t *testing.T) {
	tmpl, err := New("select * from events where day = '{{ run_day }}'", nil, nil)
	require.NoError(t, err)

	out, err := tmpl.Render("2024-03-14", nil)
	require.NoError(t, err)
	assert.Equal(t, "select * from events where day = '2024-03-14'", out)
}

func TestRenderRunTimeFieldsOverrideProvidedFields(t *testing.T) {
	tmpl, err := New("select '{{ table_name }}'", nil, map[string]any{"table_name": "provided"})
	require.NoError(t, err)

	out, err := tmpl.Render("2024-01-01", map[string]any{"table_name": "run-time"})
	require.NoError(t, err)
	assert.Equal(t, "select 'run-time'", out)
}

func TestRenderSupportsConditionalsAndLoops(t *testing.T) {
	tmpl, err := New(
		`select 1{{range tables}} union all select * from {{.}}{{end}}{{if flag}} -- flagged{{end}}`,
		nil,
		map[string]any{"tables": []string{"a", "b"}, "flag": true},
	)
	require.NoError(t, err)

	out, err := tmpl.Render("2024-01-01", nil)
	require.NoError(t, err)
	assert.Equal(t, "select 1 union all select * from a union all select * from b -- flagged", out)
}

func TestRenderRaiseTemplateExceptionAborts(t *testing.T) {
	tmpl, err := New(`{{if bad}}{{raise_template_exception "bad field"}}{{end}}`, nil, map[string]any{"bad": true})
	require.NoError(t, err)

	_, err = tmpl.Render("2024-01-01", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsTemplateError(err))
	assert.Contains(t, err.Error(), "bad field")
}

func TestFromRegistryReadsTemplateByName(t *testing.T) {
	registry := NewRegistry()
	registry.Register("orders", func() (string, error) {
		return "select * from orders where day = '{{ run_day }}'", nil
	})

	tmpl, err := FromRegistry(registry, "orders", nil, nil)
	require.NoError(t, err)

	out, err := tmpl.Render("2024-06-01", nil)
	require.NoError(t, err)
	assert.Equal(t, "select * from orders where day = '2024-06-01'", out)
}

func TestFromRegistryUnknownNameIsNotFound(t *testing.T) {
	registry := NewRegistry()
	_, err := FromRegistry(registry, "missing", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
