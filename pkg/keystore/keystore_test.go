package keystore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptMnemonic(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	password := []byte("secure-password")

	// 1. Encrypt
	keyJSON, err := EncryptMnemonic(mnemonic, password)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}

	if keyJSON.Crypto.Cipher != "aes-256-gcm" {
		t.Errorf("Expected cipher aes-256-gcm, got %s", keyJSON.Crypto.Cipher)
	}

	// 2. Decrypt with correct password
	plaintext, err := DecryptMnemonic(keyJSON, password)
	if err != nil {
		t.Fatalf("Decryption failed: %v", err)
	}

	if string(plaintext) != mnemonic {
		t.Errorf("Decryption mismatch. Expected %s, got %s", mnemonic, plaintext)
	}

	// 3. Decrypt with wrong password
	_, err = DecryptMnemonic(keyJSON, []byte("wrong-password"))
	if err == nil {
		t.Error("Expected error with wrong password, got nil")
	}
}

func TestFileSaveLoad(t *testing.T) {
	mnemonic := "test mnemonic"
	password := []byte("123456")
	filename := filepath.Join(t.TempDir(), "test_wallet.json")

	// Encrypt
	keyJSON, _ := EncryptMnemonic(mnemonic, password)

	// Save
	err := keyJSON.SaveToFile(filename)
	if err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	// 权限必须是 0600
	info, err := os.Stat(filename)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Keystore file mode = %v, want 0600", info.Mode().Perm())
	}

	// Load
	loadedJSON, err := LoadFromFile(filename)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	// Verify
	if loadedJSON.Id != keyJSON.Id {
		t.Errorf("ID mismatch after load")
	}

	// Decrypt Loaded
	decrypted, err := DecryptMnemonic(loadedJSON, password)
	if err != nil {
		t.Fatalf("Decrypt loaded failed: %v", err)
	}
	if string(decrypted) != mnemonic {
		t.Errorf("Content mismatch")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	keyJSON, _ := EncryptMnemonic("some words here", []byte("pw"))

	data, err := keyJSON.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	loaded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	plaintext, err := DecryptMnemonic(loaded, []byte("pw"))
	if err != nil {
		t.Fatalf("Decrypt after round trip failed: %v", err)
	}
	if string(plaintext) != "some words here" {
		t.Errorf("Content mismatch after round trip")
	}
}
