package ibak

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/gobuffalo/flect"
	"github.com/sirupsen/logrus"
)

func BuildCommand(command []string, additionalArgs ...string) *exec.Cmd {
	fullArgs := append(append([]string{}, command...), additionalArgs...)
	cmd := exec.Command(fullArgs[0], fullArgs[1:]...)
	cmd.Stdout = os.Stderr // default stdout to stderr because we don't want other processes to output stuff on our output
	cmd.Stderr = os.Stderr
	return cmd
}

func RunCommand(log *logrus.Entry, cmd *exec.Cmd) error {
	log.Printf("starting: %s", cmd.String())
	return cmd.Run()
}

// RunPostCreateHook runs the PostCreateCommand store option (if set) after an entry
// has been created and persisted. The entry is exposed to the hook through IBAK_*
// environment variables. A failing hook is reported but never fails the backup:
// the entry and its archive are already durable at this point.
func RunPostCreateHook(log *logrus.Entry, options *Options, entry Entry, archivePath string) {
	command := options.GetCommand("PostCreateCommand", nil)
	if len(command) == 0 {
		return
	}

	env := os.Environ()
	for _, kv := range [][2]string{
		{"id", entry.ID()},
		{"path", entry.Path},
		{"archive", archivePath},
		{"timestamp", entry.TimestampString()},
		{"fileCount", fmt.Sprintf("%d", entry.FileCount)},
	} {
		env = append(env, fmt.Sprintf("IBAK_%s=%s", flect.New(kv[0]).Underscore().ToUpper().String(), kv[1]))
	}

	cmd := BuildCommand(command)
	cmd.Env = env
	err := RunCommand(log, cmd)
	if err != nil {
		log.Warnf("post-create hook failed: %v", err)
	}
}
