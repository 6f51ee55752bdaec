package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"

	tessera "github.com/itsatony/go-tessera"
	"github.com/itsatony/go-tessera/library/basic"
	"gopkg.in/yaml.v3"
)

// versionReport describes the binary and the library it ships with
type versionReport struct {
	Version       string   `json:"version"`
	Revision      string   `json:"revision"`
	GoVersion     string   `json:"go_version"`
	Library       string   `json:"library"`
	Actions       []string `json:"actions"`
	Contributions []string `json:"contributions"`
	Functions     []string `json:"functions"`
}

// releaseFile mirrors the parts of versions.yaml the CLI reads
type releaseFile struct {
	Project struct {
		Version string `yaml:"version"`
	} `yaml:"project"`
	Git struct {
		Commit string `yaml:"commit"`
	} `yaml:"git"`
}

// releaseFilePaths are searched in order when build info carries no version
var releaseFilePaths = []string{"versions.yaml", "../versions.yaml", "../../versions.yaml"}

func runVersion(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(CmdNameVersion, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var format string
	fs.StringVar(&format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&format, FlagFormatShort, FlagDefaultFormat, "")

	err := fs.Parse(args)
	if err == nil && format != OutputFormatText && format != OutputFormatJSON {
		err = errors.New(format)
	}
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFormat, err)
		return ExitCodeUsageError
	}

	report := buildVersionReport(basic.New())
	if format == OutputFormatJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
			return ExitCodeError
		}
		return ExitCodeSuccess
	}
	report.writeText(stdout)
	return ExitCodeSuccess
}

// buildVersionReport resolves the version from build info first, then
// from versions.yaml, and lists what lib registers.
func buildVersionReport(lib tessera.Library) *versionReport {
	r := &versionReport{
		Version:   VersionUnknown,
		Revision:  VersionUnknown,
		GoVersion: runtime.Version(),
		Library:   lib.Name(),
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != VersionDevel {
			r.Version = v
		}
		for _, s := range info.Settings {
			if s.Key == BuildSettingRevision && s.Value != "" {
				r.Revision = s.Value
			}
		}
	}
	if r.Version == VersionUnknown {
		r.applyReleaseFile()
	}

	for _, f := range lib.Actions() {
		r.Actions = append(r.Actions, f.Name())
	}
	for _, f := range lib.Contributions() {
		r.Contributions = append(r.Contributions, f.Name())
	}
	for _, f := range lib.Functions() {
		r.Functions = append(r.Functions, f.Name)
	}
	sort.Strings(r.Actions)
	sort.Strings(r.Contributions)
	sort.Strings(r.Functions)
	return r
}

// applyReleaseFile fills unset fields from the first readable versions.yaml.
func (r *versionReport) applyReleaseFile() {
	for _, path := range releaseFilePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rf releaseFile
		if yaml.Unmarshal(data, &rf) != nil {
			continue
		}
		if rf.Project.Version != "" {
			r.Version = rf.Project.Version
		}
		if r.Revision == VersionUnknown && rf.Git.Commit != "" {
			r.Revision = rf.Git.Commit
		}
		return
	}
}

func (r *versionReport) writeText(w io.Writer) {
	fmt.Fprintf(w, VersionTextHeader, CLIName, r.Version, r.Revision, r.GoVersion)
	fmt.Fprintf(w, VersionTextLibrary, r.Library)
	fmt.Fprintf(w, VersionTextList, VersionLabelActions, strings.Join(r.Actions, ListSeparator))
	fmt.Fprintf(w, VersionTextList, VersionLabelContributions, strings.Join(r.Contributions, ListSeparator))
	fmt.Fprintf(w, VersionTextList, VersionLabelFunctions, strings.Join(r.Functions, ListSeparator))
}
