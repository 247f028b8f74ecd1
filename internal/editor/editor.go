package editor

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mithrel/medchat/pkg/api"
)

const (
	SessionPrefix = "Session: "
	SenderPrefix  = "Sender: "
)

// Draft is a message composed in the editor.
type Draft struct {
	SessionID string
	Sender    api.Sender
	Body      string
}

// ComposeContent creates the text presented to the editor.
func ComposeContent(d Draft) string {
	if d.Sender == "" {
		d.Sender = api.SenderBot
	}
	var b bytes.Buffer
	b.WriteString("# medchat draft\n")
	b.WriteString("# Lines starting with '#' are ignored above the '---' line.\n")
	b.WriteString("# Leave Session empty to only render. Sender is bot or user.\n")
	b.WriteString(SessionPrefix + d.SessionID + "\n")
	b.WriteString(SenderPrefix + string(d.Sender) + "\n")
	b.WriteString("---\n")
	if d.Body != "" {
		if !strings.HasSuffix(d.Body, "\n") {
			d.Body += "\n"
		}
		b.WriteString(d.Body)
	}
	return b.String()
}

// ParseDraft extracts the header fields and body from the editor output.
// Comment lines are only stripped from the header; the body is kept verbatim
// apart from surrounding blank lines.
func ParseDraft(s string) Draft {
	d := Draft{Sender: api.SenderBot}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trim := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trim, "#"):
		case strings.HasPrefix(trim, strings.TrimSpace(SessionPrefix)):
			d.SessionID = strings.TrimSpace(strings.TrimPrefix(trim, strings.TrimSpace(SessionPrefix)))
		case strings.HasPrefix(trim, strings.TrimSpace(SenderPrefix)):
			if api.Sender(strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trim, strings.TrimSpace(SenderPrefix))))) == api.SenderUser {
				d.Sender = api.SenderUser
			}
		case trim == "---":
			d.Body = strings.Trim(strings.Join(lines[i+1:], "\n"), "\n")
			return d
		}
	}
	return d
}

// PreferredEditor finds a suitable editor from env or common defaults.
func PreferredEditor() (string, error) {
	if v := os.Getenv("VISUAL"); v != "" {
		return v, nil
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e, nil
	}
	for _, cand := range []string{"nvim", "vim", "vi", "nano"} {
		if p, err := exec.LookPath(cand); err == nil {
			return p, nil
		}
	}
	return "", errors.New("no editor found; set $EDITOR or $VISUAL")
}

// PathForDraft returns a private temp file path for a draft name.
func PathForDraft(name string) (string, error) {
	file := sanitize(name) + ".medchat.md"
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, "medchat", file), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "medchat", "edit", file), nil
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "draft"
	}
	return b.String()
}

func writeFile0600(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, fs.FileMode(0o600))
}

// OpenAt opens the editor at path with initial content and returns final bytes and whether it changed.
func OpenAt(path string, initial []byte) (final []byte, changed bool, err error) {
	if err := writeFile0600(path, initial); err != nil {
		return nil, false, err
	}
	// Honor VISUAL/EDITOR including flags by running via a shell wrapper.
	ed := os.Getenv("VISUAL")
	if ed == "" {
		ed = os.Getenv("EDITOR")
	}
	var cmd *exec.Cmd
	if strings.TrimSpace(ed) != "" {
		cmd = exec.Command("sh", "-c", "$EDITORCMD \"$FILEPATH\"")
		cmd.Env = append(os.Environ(), "EDITORCMD="+ed, "FILEPATH="+path)
	} else {
		prog, err := PreferredEditor()
		if err != nil {
			return nil, false, err
		}
		cmd = exec.Command(prog, path)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, false, err
	}
	out, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return out, !bytes.Equal(out, initial), nil
}
