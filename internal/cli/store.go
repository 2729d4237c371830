package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"siraqemir/internal/models"
)

func sessionPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("session-file"); p != "" {
		return p, nil
	}
	if p := os.Getenv("TASKS_SESSION_FILE"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "siraqemir", "session.json"), nil
}

func loadTokens(path string) (models.TokenPair, error) {
	var t models.TokenPair
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return models.TokenPair{}, fmt.Errorf("corrupt session file %s: %w", path, err)
	}
	return t, nil
}

// saveTokens replaces the file atomically and removes it when the session
// is gone.
func saveTokens(path string, t models.TokenPair) error {
	if t.AccessToken == "" && t.RefreshToken == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
