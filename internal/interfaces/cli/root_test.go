package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["check-now"])
	assert.True(t, names["report"])
	assert.True(t, names["alerts"])
	assert.True(t, names["migrate"])

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("output"))
	assert.NotNil(t, root.PersistentFlags().Lookup("timeout"))
}

func TestCheckNowRequiresArgument(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"check-now"})
	err := root.Execute()
	require.Error(t, err)
}

func TestAlertsSubcommands(t *testing.T) {
	root := NewRootCommand()
	alerts, _, err := root.Find([]string{"alerts"})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, sub := range alerts.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["ack"])
	assert.True(t, names["resolve"])
	assert.True(t, names["false-positive"])
}

func TestPrintResultRejectsUnknownFormat(t *testing.T) {
	opts := &RootOptions{OutputFormat: "yaml"}
	err := printResult(opts, map[string]string{"a": "b"}, func() string { return "" })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
