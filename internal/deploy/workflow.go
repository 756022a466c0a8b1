// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/toeirei/shipmaster/internal/logging"
)

// Transport is the slice of Session the workflows run against. Tests
// substitute a recording fake; production code always uses *Session.
type Transport interface {
	RunBuffered(commandString string) (string, error)
	RunStream(commandString string, out io.Writer, cancel *CancelWatcher) error
	Upload(localPath, remotePath string) error
	Close() error
}

// DialFunc produces a live transport for a validated target. Injected so
// tests can verify that validation failures never reach the network.
type DialFunc func(Target, Auth) (Transport, error)

// SessionDial is the production DialFunc, connecting a real SSH session.
func SessionDial(target Target, auth Auth) (Transport, error) {
	return Connect(target, auth)
}

// Workflow sequences commands and uploads against one transport. Steps run
// strictly in order and the first failure aborts everything after it; no
// step is rolled back.
type Workflow struct {
	transport Transport
	target    Target
}

// NewWorkflow binds a live transport to a target for one run.
func NewWorkflow(transport Transport, target Target) *Workflow {
	return &Workflow{transport: transport, target: target}
}

// Deploy validates the target, establishes the session and runs the
// selected workflow. This is the single entry point the CLI uses.
func Deploy(target Target, auth Auth, production bool, dial DialFunc) error {
	if err := target.Validate(production); err != nil {
		return err
	}

	logging.Infof("connecting to %s as %s", target.Addr(), target.Username)
	transport, err := dial(target, auth)
	if err != nil {
		return err
	}
	defer transport.Close()

	w := NewWorkflow(transport, target)
	if production {
		return w.DeployProduction()
	}
	return w.DeployTest()
}

// DeployTest uploads the bundle and unpacks it into the test directory.
// The test directory is emptied first so repeated test deploys start
// clean.
func (w *Workflow) DeployTest() error {
	remoteZip, err := w.uploadBundle()
	if err != nil {
		return err
	}

	testDir := w.target.TestDir
	logging.Infof("clearing test directory %s", testDir)
	if _, err := w.transport.RunBuffered(fmt.Sprintf("rm -rf %s", shellQuote(testDir))); err != nil {
		return err
	}

	logging.Infof("unpacking bundle into %s", testDir)
	cmd := fmt.Sprintf("unzip -o %s -d %s", shellQuote(remoteZip), shellQuote(testDir))
	if _, err := w.transport.RunBuffered(cmd); err != nil {
		return err
	}

	persistence := path.Join(testDir, PersistenceDir)
	if _, err := w.transport.RunBuffered(fmt.Sprintf("mkdir -p %s", shellQuote(persistence))); err != nil {
		return err
	}

	settingsDest := path.Join(persistence, SettingsFileName)
	logging.Infof("uploading test settings to %s", settingsDest)
	if err := w.transport.Upload(w.target.TestSettingsFile, settingsDest); err != nil {
		return err
	}

	logging.Infof("test deployment complete")
	return nil
}

// DeployProduction replaces the installed executable and static assets and
// cycles the service. The bundle layout is verified before any destructive
// step; after that point a failure leaves partial state visible for the
// administrator rather than attempting an automatic rollback.
func (w *Workflow) DeployProduction() error {
	logging.Infof("stopping %s", ServiceName)
	if _, err := w.transport.RunBuffered("systemctl stop " + ServiceName); err != nil {
		return err
	}

	remoteZip, err := w.uploadBundle()
	if err != nil {
		return err
	}

	if err := w.verifyBundleLayout(remoteZip); err != nil {
		return err
	}

	prodDir := w.target.ProductionDir
	staticDir := path.Join(prodDir, BundleStaticDir)
	logging.Infof("removing %s", staticDir)
	if _, err := w.transport.RunBuffered(fmt.Sprintf("rm -rf %s", shellQuote(staticDir))); err != nil {
		return err
	}

	// Extract the executable flat (its archive path is discarded) and the
	// static subtree with its structure intact.
	logging.Infof("installing %s into %s", BundleExecutable, prodDir)
	cmd := fmt.Sprintf("unzip -j -o %s %s -d %s",
		shellQuote(remoteZip), shellQuote(BundleExecutable), shellQuote(prodDir))
	if _, err := w.transport.RunBuffered(cmd); err != nil {
		return err
	}
	cmd = fmt.Sprintf("unzip -o %s %s -d %s",
		shellQuote(remoteZip), shellQuote(BundleStaticDir+"/*"), shellQuote(prodDir))
	if _, err := w.transport.RunBuffered(cmd); err != nil {
		return err
	}

	owner := w.target.ProductionUser + ":" + w.target.ProductionUser
	logging.Infof("setting ownership to %s", owner)
	cmd = fmt.Sprintf("chown -R %s %s %s", owner,
		shellQuote(path.Join(prodDir, BundleExecutable)), shellQuote(staticDir))
	if _, err := w.transport.RunBuffered(cmd); err != nil {
		return err
	}

	logging.Infof("starting %s", ServiceName)
	if _, err := w.transport.RunBuffered("systemctl start " + ServiceName); err != nil {
		return err
	}

	status, err := w.transport.RunBuffered("systemctl status " + ServiceName)
	if err != nil {
		return err
	}
	logging.Infof("service status:\n%s", status)

	logging.Infof("production deployment complete")
	return nil
}

// RunTestApp launches the unpacked executable inside the test directory in
// streaming mode, honoring cancellation. Output goes straight to out.
func (w *Workflow) RunTestApp(out io.Writer, cancel *CancelWatcher) error {
	cmd := fmt.Sprintf("cd %s && ./%s", shellQuote(w.target.TestDir), BundleExecutable)
	logging.Infof("running %s (interrupt to stop watching)", BundleExecutable)
	return w.transport.RunStream(cmd, out, cancel)
}

// uploadBundle copies the bundle zip into the remote scratch directory,
// named after its local file name, and returns the remote path.
func (w *Workflow) uploadBundle() (string, error) {
	remoteZip := path.Join(RemoteScratchDir, filepath.Base(w.target.BundleZip))
	logging.Infof("uploading %s to %s", w.target.BundleZip, remoteZip)
	if err := w.transport.Upload(w.target.BundleZip, remoteZip); err != nil {
		return "", err
	}
	return remoteZip, nil
}

// verifyBundleLayout lists the uploaded archive remotely and confirms it
// contains the expected executable and static-assets entries. Each missing
// entry aborts with a descriptive configuration error before anything
// destructive happens.
func (w *Workflow) verifyBundleLayout(remoteZip string) error {
	checks := []struct {
		entry string
		what  string
	}{
		{BundleExecutable, "executable"},
		{BundleStaticDir + "/*", "static assets directory"},
	}
	for _, c := range checks {
		cmd := fmt.Sprintf("unzip -l %s %s", shellQuote(remoteZip), shellQuote(c.entry))
		if _, err := w.transport.RunBuffered(cmd); err != nil {
			return &ConfigError{
				Msg: fmt.Sprintf("bundle %s does not contain the expected %s %q",
					w.target.BundleZip, c.what, c.entry),
				Err: err,
			}
		}
	}
	return nil
}

// shellQuote single-quotes a path argument for the remote POSIX shell.
// Paths containing single quotes are out of scope for this tool.
func shellQuote(s string) string {
	return "'" + s + "'"
}
