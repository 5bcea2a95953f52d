package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	verbose    = flag.Bool("v", false, "verbose output")
	short      = flag.Bool("short", false, "run only short tests")
	cover      = flag.Bool("cover", false, "report coverage per package")
	timeout    = flag.Duration("timeout", 5*time.Minute, "test timeout")
	testRegexp = flag.String("run", "", "run only tests matching the regular expression")
	pkgs       = flag.String("pkg", "./...", "comma separated packages to test")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	scratch, err := os.MkdirTemp("", "rawjournal-test-")
	if err != nil {
		fmt.Printf("Error creating scratch dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(scratch)

	args := testArgs()
	cmd := exec.Command("go", args...)

	// Keep tests away from the user's journal and .env settings.
	cmd.Env = append(os.Environ(),
		"TEST_ENV=true",
		"DB_PATH="+filepath.Join(scratch, "journal.db"),
		"LOG_LEVEL=ERROR",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fmt.Printf("Running tests with args: %s\n", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		fmt.Printf("Error running tests: %v\n", err)
		return 1
	}
	return 0
}

func testArgs() []string {
	args := []string{"test"}
	if *verbose {
		args = append(args, "-v")
	}
	if *short {
		args = append(args, "-short")
	}
	if *cover {
		args = append(args, "-cover")
	}
	args = append(args, fmt.Sprintf("-timeout=%s", timeout.String()))
	if *testRegexp != "" {
		args = append(args, fmt.Sprintf("-run=%s", *testRegexp))
	}
	for _, p := range strings.Split(*pkgs, ",") {
		if p = strings.TrimSpace(p); p != "" {
			args = append(args, p)
		}
	}
	return args
}
