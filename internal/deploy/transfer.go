// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"os"
)

// UploadMode is the fixed permission set for every uploaded file.
const UploadMode = 0o644

// Upload copies the local file at localPath to remotePath over the
// session's SFTP channel. The whole file is read into memory first;
// bundles are bounded in size, so no chunked transfer is needed. A missing
// or unreadable local file fails with *ConfigError before any network
// activity; every remote failure is a *TransferError.
func (s *Session) Upload(localPath, remotePath string) error {
	if err := mustExist(localPath, "local file"); err != nil {
		return err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return &ConfigError{Msg: "could not read local file", Err: err}
	}

	f, err := s.sftp.Create(remotePath)
	if err != nil {
		return &TransferError{LocalPath: localPath, RemotePath: remotePath, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return &TransferError{LocalPath: localPath, RemotePath: remotePath, Err: err}
	}
	if err := f.Close(); err != nil {
		return &TransferError{LocalPath: localPath, RemotePath: remotePath, Err: err}
	}
	if err := s.sftp.Chmod(remotePath, UploadMode); err != nil {
		return &TransferError{LocalPath: localPath, RemotePath: remotePath, Err: err}
	}
	return nil
}
