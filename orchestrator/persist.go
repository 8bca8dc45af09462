package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type PersistBundle struct {
	SessionID   string    `json:"session_id"`
	AudioPath   string    `json:"audio_path"`
	GeneratedAt time.Time `json:"generated_at"`
	*Result
}

// mkSessionDir creates a fresh session directory; sessions started within the
// same millisecond get a numeric suffix.
func mkSessionDir(outputsRoot string) (string, string, error) {
	if err := os.MkdirAll(outputsRoot, 0o755); err != nil {
		return "", "", err
	}
	base := "session_" + time.Now().Format("20060102-150405.000")
	sid := base
	for n := 2; ; n++ {
		dir := filepath.Join(outputsRoot, sid)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return sid, dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", err
		}
		sid = fmt.Sprintf("%s-%d", base, n)
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Persist writes res to <outputsRoot>/session_<ts>/analysis.json and returns the session id and file path.
func Persist(outputsRoot, audioPath string, res *Result) (sessionID, path string, err error) {
	sid, outDir, err := mkSessionDir(outputsRoot)
	if err != nil {
		return "", "", err
	}
	path = filepath.Join(outDir, "analysis.json")
	bundle := PersistBundle{
		SessionID:   sid,
		AudioPath:   audioPath,
		GeneratedAt: time.Now(),
		Result:      res,
	}
	if err = writeJSON(path, bundle); err != nil {
		return "", "", err
	}
	return sid, path, nil
}
