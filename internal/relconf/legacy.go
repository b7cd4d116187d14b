package relconf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const autogeneratedVMArgsTemplate = `# MACHINE GENERATED FILE. DO NOT MODIFY.

## Name of the node
-name %s

## Cookie for distributed erlang
-setcookie %s
`

var (
	legacyNameRx   = regexp.MustCompile(`-name (.*)`)
	legacyCookieRx = regexp.MustCompile(`-setcookie (.*)`)
)

// NewCookie returns a fresh distributed-erlang cookie.
func NewCookie() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// UpgradeLegacyVMArgs migrates pre-autogenerated vm.args files of all
// components: the node name and cookie are carried over into the
// machine-generated file and the legacy one is removed. Components
// without a legacy file are left alone.
func UpgradeLegacyVMArgs(paths Paths) error {
	for _, component := range Components {
		legacy := paths.LegacyVMArgs(component)
		if _, err := os.Stat(legacy); err != nil {
			continue
		}
		if err := upgradeLegacy(legacy); err != nil {
			return fmt.Errorf("upgrading %s: %w", legacy, err)
		}
	}
	return nil
}

func upgradeLegacy(legacyPath string) error {
	content, err := os.ReadFile(legacyPath)
	if err != nil {
		return err
	}

	nameMatch := legacyNameRx.FindSubmatch(content)
	if nameMatch == nil {
		return fmt.Errorf("no -name entry found")
	}
	node := strings.TrimSpace(string(nameMatch[1]))

	cookie := NewCookie()
	if cookieMatch := legacyCookieRx.FindSubmatch(content); cookieMatch != nil {
		cookie = strings.TrimSpace(string(cookieMatch[1]))
	}

	generated := filepath.Join(filepath.Dir(legacyPath), "autogenerated.vm.args")
	out := fmt.Sprintf(autogeneratedVMArgsTemplate, node, cookie)
	if err := os.WriteFile(generated, []byte(out), 0644); err != nil {
		return err
	}
	if err := os.Remove(legacyPath); err != nil {
		return err
	}

	slog.Info("upgraded legacy vm.args", "from", legacyPath, "to", generated)
	return nil
}
