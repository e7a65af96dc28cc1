package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"findash/internal/sheets/xlsx"
	"findash/internal/worker"
)

// isolate points the app at a fresh database with every provider and
// transport unset.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "findash.db"))
	for _, key := range []string{
		"MERCURY_API_TOKEN", "STRIPE_API_KEY", "CHAT_TRANSPORT", "AMQP_URL",
		"SMTP_USERNAME", "GOOGLE_SPREADSHEET_ID", "GOOGLE_SERVICE_ACCOUNT_FILE",
		"XLSX_EXPORT_PATH", "COUNTERPARTY_RULES_FILE", "DASHBOARD_USER", "DASHBOARD_PASS",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", "", "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestArgumentValidation(t *testing.T) {
	isolate(t)

	_, err := run(t, "report", "daily")
	assert.Error(t, err)

	_, err = run(t, "remind")
	assert.ErrorContains(t, err, "an invoice id is required")

	_, err = run(t, "remind", "in_1", "--all")
	assert.ErrorContains(t, err, "not both")

	_, err = run(t, "status", "extra")
	assert.Error(t, err)
}

func TestSyncWithoutProviders(t *testing.T) {
	isolate(t)

	out, err := run(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "transactions: 0")
	assert.Contains(t, out, "subscriptions: 0")
}

func TestStatusListsJobs(t *testing.T) {
	isolate(t)

	out, err := run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "transactions 0")
	assert.Contains(t, out, worker.JobSyncAllData)
	assert.Contains(t, out, worker.JobWeeklySummary)
	assert.NotContains(t, out, worker.JobExportDashboard)
}

func TestRemindRequiresConfiguredProviders(t *testing.T) {
	isolate(t)

	_, err := run(t, "remind", "--all")
	assert.ErrorContains(t, err, "STRIPE_API_KEY")
}

func TestExport(t *testing.T) {
	dir := isolate(t)

	_, err := run(t, "export")
	assert.ErrorContains(t, err, "not configured")

	path := filepath.Join(dir, "out", "dashboard.xlsx")
	out, err := run(t, "export", "--xlsx", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = os.Stat(path)
	require.NoError(t, err)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(xlsx.SheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Metric", v)
}

func TestConfigErrorsSurface(t *testing.T) {
	isolate(t)
	t.Setenv("CHAT_TRANSPORT", "pigeon")

	_, err := run(t, "status")
	assert.ErrorContains(t, err, "invalid chat transport")
}
