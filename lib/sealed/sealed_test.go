// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
)

func TestReadSecretPlaintext(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manager.secret")
	if err := os.WriteFile(path, []byte("hunter2\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	secret, err := ReadSecret(path, "")
	if err != nil {
		t.Fatalf("ReadSecret: %v", err)
	}
	if secret != "hunter2" {
		t.Errorf("secret: got %q, want %q", secret, "hunter2")
	}
}

func TestReadSecretEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manager.secret")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	if _, err := ReadSecret(path, ""); err == nil {
		t.Fatal("ReadSecret on empty file succeeded, want error")
	}
}

func TestReadSecretSealed(t *testing.T) {
	t.Parallel()

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity: %v", err)
	}

	ciphertext, err := Encrypt([]byte("hunter2\n"), identity.Recipient())
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	dir := t.TempDir()
	secretPath := filepath.Join(dir, "manager.secret.age")
	identityPath := filepath.Join(dir, "identity.txt")
	if err := os.WriteFile(secretPath, ciphertext, 0o600); err != nil {
		t.Fatalf("write ciphertext: %v", err)
	}
	identityFile := "# created: today\n# public key: " + identity.Recipient().String() + "\n" + identity.String() + "\n"
	if err := os.WriteFile(identityPath, []byte(identityFile), 0o600); err != nil {
		t.Fatalf("write identity: %v", err)
	}

	secret, err := ReadSecret(secretPath, identityPath)
	if err != nil {
		t.Fatalf("ReadSecret: %v", err)
	}
	if secret != "hunter2" {
		t.Errorf("secret: got %q, want %q", secret, "hunter2")
	}
}

func TestDecryptWrongIdentity(t *testing.T) {
	t.Parallel()

	right, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity: %v", err)
	}
	wrong, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity: %v", err)
	}

	ciphertext, err := Encrypt([]byte("secret"), right.Recipient())
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := Decrypt(ciphertext, wrong); err == nil {
		t.Fatal("Decrypt with wrong identity succeeded, want error")
	}
}
