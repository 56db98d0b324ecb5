package cluster

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/esxm/pkg/errors"
)

func newTestCmd(yes bool) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("yes", yes, "")
	return cmd
}

func TestConfirmOrCancel_Declined(t *testing.T) {
	var prompt string
	confirm := func(p string) (bool, error) {
		prompt = p
		return false, nil
	}

	err := confirmOrCancel(newTestCmd(false), confirm, "Remove the cluster containers?")
	require.Error(t, err)
	assert.Equal(t, errors.KindUserCancelled, errors.KindOf(err))
	assert.Equal(t, "Remove the cluster containers?", prompt)
}

func TestConfirmOrCancel_Approved(t *testing.T) {
	confirm := func(string) (bool, error) { return true, nil }
	assert.NoError(t, confirmOrCancel(newTestCmd(false), confirm, "proceed?"))
}

func TestConfirmOrCancel_YesFlagSkipsPrompt(t *testing.T) {
	confirm := func(string) (bool, error) {
		t.Fatal("prompt must not be shown with --yes")
		return false, nil
	}
	assert.NoError(t, confirmOrCancel(newTestCmd(true), confirm, "proceed?"))
}
