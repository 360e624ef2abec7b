package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/andywolf/cde/internal/api"
)

var cmdStdout io.Writer = os.Stdout

// printResult renders an api.Result either as JSON (when jsonOut is set, the
// additive --json flag every verb accepts per the tool surface's
// realization notes) or as a simple key: value listing, sorted for
// deterministic output. When res carries an error envelope it still prints
// the envelope, but returns a non-nil error so RunE surfaces it to Execute
// and main.go maps it onto exit code 1 (operationStarted is already true by
// the time any verb's RunE runs, so it is never mistaken for exit code 2).
func printResult(res api.Result, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(cmdStdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		return resultError(res)
	}

	if res["error"] == true {
		fmt.Fprintf(cmdStdout, "error: %v (code=%v recoverable=%v)\n", res["message"], res["code"], res["recoverable"])
		return resultError(res)
	}

	keys := make([]string, 0, len(res))
	for k := range res {
		if k == "status" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(cmdStdout, "status: %v\n", res["status"])
	for _, k := range keys {
		fmt.Fprintf(cmdStdout, "%s: %v\n", k, res[k])
	}
	return nil
}

// resultError returns a non-nil error carrying res's message when res is an
// error envelope, nil otherwise.
func resultError(res api.Result) error {
	if res["error"] != true {
		return nil
	}
	return fmt.Errorf("%v", res["message"])
}
