// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age decryption for the manager secret. The
// manager account can pause agents and originate calls, so its secret
// should not sit in plaintext next to the config file: operators
// encrypt it to the machine's age recipient and point the config at
// the ciphertext plus the machine's identity file.
//
// Both binary and ASCII-armored ciphertext are accepted. Plaintext
// secret files (no identity configured) are read as-is with
// surrounding whitespace trimmed.
package sealed

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// ReadSecret loads the manager secret from secretPath. When
// identityPath is empty the file content is the secret (trimmed).
// When identityPath is set the file is age ciphertext and is
// decrypted with the identities found there.
func ReadSecret(secretPath, identityPath string) (string, error) {
	data, err := os.ReadFile(secretPath)
	if err != nil {
		return "", fmt.Errorf("sealed: read secret file: %w", err)
	}

	if identityPath == "" {
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("sealed: secret file %s is empty", secretPath)
		}
		return secret, nil
	}

	identities, err := loadIdentities(identityPath)
	if err != nil {
		return "", err
	}

	plaintext, err := Decrypt(data, identities...)
	if err != nil {
		return "", fmt.Errorf("sealed: decrypt %s: %w", secretPath, err)
	}
	secret := strings.TrimSpace(string(plaintext))
	if secret == "" {
		return "", fmt.Errorf("sealed: decrypted secret from %s is empty", secretPath)
	}
	return secret, nil
}

// Decrypt decrypts age ciphertext (binary or armored) with the given
// identities.
func Decrypt(ciphertext []byte, identities ...age.Identity) ([]byte, error) {
	var src io.Reader = bytes.NewReader(ciphertext)
	if bytes.HasPrefix(bytes.TrimSpace(ciphertext), []byte(armor.Header)) {
		src = armor.NewReader(src)
	}

	out, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, err
	}
	plaintext, err := io.ReadAll(out)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// Encrypt encrypts plaintext to the given recipients, producing
// armored ciphertext suitable for a config-managed secret file.
func Encrypt(plaintext []byte, recipients ...age.Recipient) ([]byte, error) {
	var buf bytes.Buffer
	armorWriter := armor.NewWriter(&buf)
	encryptWriter, err := age.Encrypt(armorWriter, recipients...)
	if err != nil {
		return nil, fmt.Errorf("sealed: encrypt: %w", err)
	}
	if _, err := encryptWriter.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: encrypt: %w", err)
	}
	if err := encryptWriter.Close(); err != nil {
		return nil, fmt.Errorf("sealed: encrypt: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return nil, fmt.Errorf("sealed: armor: %w", err)
	}
	return buf.Bytes(), nil
}

// loadIdentities parses an age identity file. Lines starting with #
// are comments, matching the format written by age-keygen.
func loadIdentities(path string) ([]age.Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sealed: read identity file: %w", err)
	}
	defer file.Close()

	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, fmt.Errorf("sealed: parse identity file %s: %w", path, err)
	}
	return identities, nil
}
