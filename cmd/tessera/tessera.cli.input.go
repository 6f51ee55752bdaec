package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(path)
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, FilePermissions)
}

// loadData reads the JSON variables given inline or by file.
func loadData(jsonStr, filePath string, stdin io.Reader) (map[string]any, error) {
	var jsonData []byte

	if filePath != "" {
		data, err := readInput(filePath, stdin)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgReadFileFailed, err)
		}
		jsonData = data
	} else if jsonStr != "" {
		jsonData = []byte(jsonStr)
	} else {
		return make(map[string]any), nil
	}

	var result map[string]any
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]any)
	}
	return result, nil
}

// oneLine flattens a diagnostic to a single line.
func oneLine(err error) string {
	return strings.Join(strings.Fields(err.Error()), " ")
}
