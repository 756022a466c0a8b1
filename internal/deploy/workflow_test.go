// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toeirei/shipmaster/internal/deploy"
	"github.com/toeirei/shipmaster/internal/testutil"
)

// writeFile creates a throwaway local file and returns its path.
func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func testTarget(t *testing.T) deploy.Target {
	t.Helper()
	return deploy.Target{
		Host:             "deploy.example.com",
		Port:             22,
		Username:         "deployer",
		BundleZip:        writeFile(t, "bundle.zip", []byte("zip")),
		TestDir:          "/home/deployer/appserver-test",
		TestSettingsFile: writeFile(t, "test_settings.yaml", []byte("settings")),
		ProductionDir:    "/opt/appserver",
		ProductionUser:   "www-data",
	}
}

func TestDeployTestSequence(t *testing.T) {
	tr := testutil.NewFakeTransport()
	target := testTarget(t)

	w := deploy.NewWorkflow(tr, target)
	require.NoError(t, w.DeployTest())

	require.Len(t, tr.Ops, 5)

	// 1. bundle upload into the scratch directory, named by its file name
	assert.Equal(t, "upload", tr.Ops[0].Kind)
	assert.Equal(t, target.BundleZip, tr.Ops[0].LocalPath)
	assert.Equal(t, "/tmp/bundle.zip", tr.Ops[0].RemotePath)

	// 2-4. clean, unpack, create persistence dir
	assert.Equal(t, "rm -rf '/home/deployer/appserver-test'", tr.Ops[1].Command)
	assert.Equal(t, "unzip -o '/tmp/bundle.zip' -d '/home/deployer/appserver-test'", tr.Ops[2].Command)
	assert.Equal(t, "mkdir -p '/home/deployer/appserver-test/persistence'", tr.Ops[3].Command)

	// 5. settings upload under the fixed file name
	assert.Equal(t, "upload", tr.Ops[4].Kind)
	assert.Equal(t, target.TestSettingsFile, tr.Ops[4].LocalPath)
	assert.Equal(t, "/home/deployer/appserver-test/persistence/app_config.yaml", tr.Ops[4].RemotePath)
}

func TestDeployTestAbortsOnFirstFailure(t *testing.T) {
	tr := testutil.NewFakeTransport()
	tr.FailOn["unzip"] = &deploy.CommandError{Command: "unzip", ExitStatus: 9}

	w := deploy.NewWorkflow(tr, testTarget(t))
	err := w.DeployTest()

	var cmdErr *deploy.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 9, cmdErr.ExitStatus)

	// Nothing after the failed unzip ran: no mkdir, no settings upload.
	require.Len(t, tr.Ops, 3)
	assert.Contains(t, tr.Ops[2].Command, "unzip")
}

func TestDeployProductionSequence(t *testing.T) {
	tr := testutil.NewFakeTransport()
	target := testTarget(t)

	w := deploy.NewWorkflow(tr, target)
	require.NoError(t, w.DeployProduction())

	want := []string{
		"systemctl stop appserver.service",
		"unzip -l '/tmp/bundle.zip' 'appserver'",
		"unzip -l '/tmp/bundle.zip' 'static/*'",
		"rm -rf '/opt/appserver/static'",
		"unzip -j -o '/tmp/bundle.zip' 'appserver' -d '/opt/appserver'",
		"unzip -o '/tmp/bundle.zip' 'static/*' -d '/opt/appserver'",
		"chown -R www-data:www-data '/opt/appserver/appserver' '/opt/appserver/static'",
		"systemctl start appserver.service",
		"systemctl status appserver.service",
	}
	assert.Equal(t, want, tr.Commands())

	// The upload happened between stop and the layout checks.
	assert.Equal(t, "upload", tr.Ops[1].Kind)
}

func TestDeployProductionAbortsBeforeDestructiveStepOnBadLayout(t *testing.T) {
	tr := testutil.NewFakeTransport()
	tr.FailOn["unzip -l"] = &deploy.CommandError{Command: "unzip -l", ExitStatus: 11}

	w := deploy.NewWorkflow(tr, testTarget(t))
	err := w.DeployProduction()

	var cfgErr *deploy.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "does not contain")

	for _, cmd := range tr.Commands() {
		assert.NotContains(t, cmd, "rm -rf", "static dir must not be touched after a failed layout check")
		assert.NotContains(t, cmd, "chown")
	}
}

func TestDeployValidatesBeforeDialing(t *testing.T) {
	dialed := false
	dial := func(deploy.Target, deploy.Auth) (deploy.Transport, error) {
		dialed = true
		return testutil.NewFakeTransport(), nil
	}

	// Empty host must fail validation without any connection attempt.
	target := testTarget(t)
	target.Host = ""

	err := deploy.Deploy(target, deploy.AgentAuth{}, false, dial)

	var cfgErr *deploy.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.False(t, dialed, "dial must not happen when validation fails")
}

func TestDeployClosesTransport(t *testing.T) {
	tr := testutil.NewFakeTransport()
	dial := func(deploy.Target, deploy.Auth) (deploy.Transport, error) {
		return tr, nil
	}

	require.NoError(t, deploy.Deploy(testTarget(t), deploy.AgentAuth{}, false, dial))
	assert.True(t, tr.Closed)
}

func TestDeployPropagatesDialError(t *testing.T) {
	authErr := &deploy.AuthError{User: "deployer", Err: errors.New("rejected")}
	dial := func(deploy.Target, deploy.Auth) (deploy.Transport, error) {
		return nil, authErr
	}

	err := deploy.Deploy(testTarget(t), deploy.AgentAuth{}, true, dial)
	assert.True(t, deploy.IsAuthError(err))
}

func TestRunTestAppStreamsFromTestDir(t *testing.T) {
	tr := testutil.NewFakeTransport()
	target := testTarget(t)
	cmd := "cd '/home/deployer/appserver-test' && ./appserver"
	tr.Outputs[cmd] = "listening on :8080\n"

	var out bytes.Buffer
	w := deploy.NewWorkflow(tr, target)
	require.NoError(t, w.RunTestApp(&out, nil))

	require.Len(t, tr.Ops, 1)
	assert.Equal(t, "stream", tr.Ops[0].Kind)
	assert.Equal(t, cmd, tr.Ops[0].Command)
	assert.Equal(t, "listening on :8080\n", out.String())
}
