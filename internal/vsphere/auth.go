package vsphere

import (
	"fmt"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
)

const gpgBinary = "/usr/bin/gpg"

// Credentials identifies a vCenter endpoint and the account to log in with.
type Credentials struct {
	Host       string
	Port       int
	User       string
	Domain     string
	Password   string
	PasswdFile string
	VerifySSL  bool
}

// Username returns the login name, qualified with the directory domain when
// one is configured. The local account name is the fallback.
func (c Credentials) Username() string {
	name := c.User
	if name == "" {
		if current, err := user.Current(); err == nil {
			name = current.Username
		}
	}
	if c.Domain != "" {
		return c.Domain + `\` + name
	}
	return name
}

// ResolvePassword fills in the password, in order of preference: an explicit
// password, a GPG-encrypted password file, then the prompt.
func (c *Credentials) ResolvePassword(prompt func(label string) (string, error)) error {
	if c.Password != "" {
		return nil
	}
	if c.PasswdFile != "" {
		password, err := decryptGPGFile(c.PasswdFile)
		if err != nil {
			return err
		}
		c.Password = password
		return nil
	}
	password, err := prompt(fmt.Sprintf("%s password: ", c.Username()))
	if err != nil {
		return err
	}
	c.Password = password
	return nil
}

// decryptGPGFile shells out to gpg to decrypt a password file. The agent
// handles key passphrases, so this stays non-interactive.
func decryptGPGFile(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		current, err := user.Current()
		if err != nil {
			return "", fmt.Errorf("failed to expand %s: %w", path, err)
		}
		path = filepath.Join(current.HomeDir, path[1:])
	}

	out, err := exec.Command(gpgBinary, "--quiet", "--decrypt", path).Output()
	if err != nil {
		return "", fmt.Errorf("failed to decrypt %s: %w", path, err)
	}
	return strings.TrimSpace(string(out)), nil
}
