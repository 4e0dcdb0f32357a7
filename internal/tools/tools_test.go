package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/parser"
	"github.com/newhook/harvest/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseWith(t *testing.T, id, input string) *report.Report {
	t.Helper()
	e, ok := Default().Lookup(id)
	require.True(t, ok, "tool %s", id)
	rep, err := e.ParseString(context.Background(), "build.log", input)
	require.NoError(t, err)
	return rep
}

func TestGcc(t *testing.T) {
	input := `In file included from src/main.c:1:
src/util.h:3:10: note: declared here
src/main.c:10:5: warning: unused variable 'x' [-Wunused-variable]
src/main.c:20: error: expected ';' before '}' token
src/main.c:30:1: fatal error: stdio.h: No such file or directory
make: *** [Makefile:2: all] Error 1`

	rep := parseWith(t, "gcc", input)
	require.Equal(t, 4, rep.Len())
	assert.Equal(t, 0, rep.ErrorCount())
	issues := rep.Issues()

	assert.Equal(t, "src/util.h", issues[0].FileName)
	assert.Equal(t, issue.SeverityLow, issues[0].Severity)

	assert.Equal(t, "src/main.c", issues[1].FileName)
	assert.Equal(t, 10, issues[1].LineStart)
	assert.Equal(t, 5, issues[1].ColumnStart)
	assert.Equal(t, issue.SeverityNormal, issues[1].Severity)
	assert.Equal(t, "unused variable 'x'", issues[1].Message)
	assert.Equal(t, "-Wunused-variable", issues[1].Type)
	assert.Equal(t, "Unused", issues[1].Category)

	assert.Equal(t, 20, issues[2].LineStart)
	assert.Equal(t, 0, issues[2].ColumnStart)
	assert.Equal(t, issue.SeverityError, issues[2].Severity)

	assert.Equal(t, issue.SeverityError, issues[3].Severity)
	assert.Equal(t, "stdio.h: No such file or directory", issues[3].Message)
	for _, i := range issues {
		assert.Equal(t, "gcc", i.Origin)
	}
}

func TestGo(t *testing.T) {
	input := `# github.com/pkg/example
./main.go:12:5: undefined: foo
vet: pkg/x.go:3:1: unreachable code
file.go:10:5: Error return value is not checked (errcheck)
ok  	github.com/pkg/other	0.01s`

	rep := parseWith(t, "go", input)
	require.Equal(t, 2, rep.Len())
	issues := rep.Issues()

	assert.Equal(t, "./main.go", issues[0].FileName)
	assert.Equal(t, 12, issues[0].LineStart)
	assert.Equal(t, 5, issues[0].ColumnStart)
	assert.Equal(t, issue.SeverityError, issues[0].Severity)
	assert.Equal(t, "compile", issues[0].Type)
	assert.Equal(t, "Undefined", issues[0].Category)

	assert.Equal(t, "pkg/x.go", issues[1].FileName)
	assert.Equal(t, "vet", issues[1].Type)
	assert.Equal(t, issue.SeverityNormal, issues[1].Severity)
}

func TestGolangciLint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		file     string
		line     int
		column   int
		linter   string
		severity issue.Severity
		message  string
	}{
		{
			name:     "annotation with column",
			input:    "##[error]core/segments/serial/condition_test.go:124:15: Error return value of `jobs.Backfill` is not checked (errcheck)",
			file:     "core/segments/serial/condition_test.go",
			line:     124,
			column:   15,
			linter:   "errcheck",
			severity: issue.SeverityHigh,
			message:  "Error return value of `jobs.Backfill` is not checked",
		},
		{
			name:     "annotation without column",
			input:    "##[error]file.go:10: File is not `gofmt`-ed with `-s` (gofmt)",
			file:     "file.go",
			line:     10,
			linter:   "gofmt",
			severity: issue.SeverityHigh,
			message:  "File is not `gofmt`-ed with `-s`",
		},
		{
			name:     "plain output",
			input:    "internal/x.go:7:2: func `helper` is unused (unused)",
			file:     "internal/x.go",
			line:     7,
			column:   2,
			linter:   "unused",
			severity: issue.SeverityNormal,
			message:  "func `helper` is unused",
		},
		{
			name:     "plain style linter",
			input:    "a.go:1:1: File is not `goimports`-ed (goimports)",
			file:     "a.go",
			line:     1,
			column:   1,
			linter:   "goimports",
			severity: issue.SeverityLow,
			message:  "File is not `goimports`-ed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := parseWith(t, "golangci-lint", tt.input)
			require.Equal(t, 1, rep.Len())
			got := rep.Issues()[0]
			assert.Equal(t, tt.file, got.FileName)
			assert.Equal(t, tt.line, got.LineStart)
			assert.Equal(t, tt.column, got.ColumnStart)
			assert.Equal(t, tt.linter, got.Type)
			assert.Equal(t, tt.severity, got.Severity)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestGolangciLint_RealCILogFormat(t *testing.T) {
	input := `Lint	Run golangci-lint	2026-01-26T14:49:40.7760945Z ##[error]a.go:3:1: exported function Foo should have comment (revive)
Lint	Run golangci-lint	2026-01-26T14:49:40.7761234Z level=info msg="done"`

	rep := parseWith(t, "golangci-lint", input)
	require.Equal(t, 1, rep.Len())
	assert.Equal(t, "revive", rep.Issues()[0].Type)
}

func TestGoTest_SingleTestFailure(t *testing.T) {
	input := `--- FAIL: TestExample (0.01s)
    example_test.go:42:
        Error Trace:	/path/example_test.go:42
        Error:      	expected 1, got 2
        Test:       	TestExample
        Messages:   	values differ
FAIL
FAIL	github.com/pkg/example	0.015s`

	rep := parseWith(t, "gotest", input)
	require.Equal(t, 1, rep.Len())
	got := rep.Issues()[0]

	assert.Equal(t, "TestExample", got.Type)
	assert.Equal(t, "/path/example_test.go", got.FileName)
	assert.Equal(t, 42, got.LineStart)
	assert.Equal(t, "expected 1, got 2", got.Message)
	assert.Equal(t, "values differ", got.Description)
	assert.Equal(t, "Test Failure", got.Category)
	assert.Equal(t, issue.SeverityError, got.Severity)
}

func TestGoTest_MultiLineError(t *testing.T) {
	input := `--- FAIL: TestDiff (0.00s)
    diff_test.go:9:
        	Error Trace:	diff_test.go:9
        	Error:      	Not equal:
        	            	expected: 1
        	            	actual  : 2
        	Test:       	TestDiff`

	rep := parseWith(t, "gotest", input)
	require.Equal(t, 1, rep.Len())
	assert.Equal(t, "Not equal: expected: 1 actual  : 2", rep.Issues()[0].Message)
}

func TestGoTest_MultipleTestFailures(t *testing.T) {
	input := `--- FAIL: TestFirst (0.01s)
    first_test.go:10:
        Error Trace:	/path/first_test.go:10
        Error:      	first error
--- FAIL: TestSecond (0.02s)
    second_test.go:20:
        Error Trace:	/path/second_test.go:20
        Error:      	second error
FAIL
FAIL	github.com/pkg/example	0.030s`

	rep := parseWith(t, "gotest", input)
	require.Equal(t, 2, rep.Len())
	assert.Equal(t, "TestFirst", rep.Issues()[0].Type)
	assert.Equal(t, "first error", rep.Issues()[0].Message)
	assert.Equal(t, "TestSecond", rep.Issues()[1].Type)
	assert.Equal(t, "second error", rep.Issues()[1].Message)
}

func TestGoTest_SubtestFailure(t *testing.T) {
	input := `--- FAIL: TestParent (0.00s)
    --- FAIL: TestParent/SubTest (0.00s)
        parent_test.go:25:
            Error Trace:	/path/parent_test.go:25
            Error:      	subtest failed
FAIL
FAIL	github.com/pkg/example	0.010s`

	rep := parseWith(t, "gotest", input)
	require.Equal(t, 1, rep.Len(), "the detail-less parent is skipped")
	got := rep.Issues()[0]
	assert.Equal(t, "TestParent/SubTest", got.Type)
	assert.Equal(t, 25, got.LineStart)
	assert.Equal(t, "subtest failed", got.Message)
	assert.Equal(t, 0, rep.ErrorCount())
}

func TestGoTest_StandardFormatAndGotestsum(t *testing.T) {
	input := `--- FAIL: TestSimple (0.00s)
    simple_test.go:15: got 1, want 2
=== FAIL: github.com/pkg/example TestOther (0.01s)
    other_test.go:3: boom
--- FAIL: TestSilent (0.00s)
FAIL`

	rep := parseWith(t, "gotest", input)
	require.Equal(t, 3, rep.Len())
	issues := rep.Issues()

	assert.Equal(t, "simple_test.go", issues[0].FileName)
	assert.Equal(t, 15, issues[0].LineStart)
	assert.Equal(t, "got 1, want 2", issues[0].Message)

	assert.Equal(t, "TestOther", issues[1].Type)
	assert.Equal(t, "github.com/pkg/example", issues[1].PackageName)

	assert.Equal(t, "TestSilent", issues[2].Type)
	assert.Equal(t, "test failed", issues[2].Message)
	assert.Equal(t, issue.UndefinedFileName, issues[2].FileName)
}

func TestGoTest_RealCILogFormat(t *testing.T) {
	input := `Test	Run tests	2026-01-26T14:49:40.7760945Z --- FAIL: TestWatcher_DebounceWithPubsub (0.34s)
Test	Run tests	2026-01-26T14:49:40.7761234Z     watcher_test.go:340:
Test	Run tests	2026-01-26T14:49:40.7761567Z         Error Trace:	watcher_test.go:340
Test	Run tests	2026-01-26T14:49:40.7761890Z         Error:      	received unexpected second event
Test	Run tests	2026-01-26T14:49:40.7762123Z         Test:       	TestWatcher_DebounceWithPubsub
Test	Run tests	2026-01-26T14:49:40.7762456Z FAIL
Test	Run tests	2026-01-26T14:49:40.7762789Z FAIL	github.com/example/watcher	0.350s`

	rep := parseWith(t, "gotest", input)
	require.Equal(t, 1, rep.Len())
	got := rep.Issues()[0]
	assert.Equal(t, "TestWatcher_DebounceWithPubsub", got.Type)
	assert.Equal(t, "watcher_test.go", got.FileName)
	assert.Equal(t, 340, got.LineStart)
	assert.Equal(t, "received unexpected second event", got.Message)
}

func TestJavac(t *testing.T) {
	input := `Foo.java:5: warning: [deprecation] bar() in Baz has been deprecated
        baz.bar();
           ^
Foo.java:9: error: cannot find symbol
Foo.java:12: error: ';' expected
    int x = 1
             ^
2 errors`

	rep := parseWith(t, "javac", input)
	require.Equal(t, 3, rep.Len())
	issues := rep.Issues()

	assert.Equal(t, "Foo.java", issues[0].FileName)
	assert.Equal(t, 5, issues[0].LineStart)
	assert.Equal(t, 12, issues[0].ColumnStart)
	assert.Equal(t, "deprecation", issues[0].Type)
	assert.Equal(t, issue.SeverityNormal, issues[0].Severity)

	assert.Equal(t, 9, issues[1].LineStart)
	assert.Equal(t, 0, issues[1].ColumnStart, "no caret follows")
	assert.Equal(t, issue.SeverityError, issues[1].Severity)

	assert.Equal(t, 12, issues[2].LineStart)
	assert.Equal(t, 14, issues[2].ColumnStart)
}

func TestMaven(t *testing.T) {
	input := `[INFO] Compiling 12 source files
[WARNING] /src/main/java/Foo.java:[12,5] [deprecation] bar() in Baz has been deprecated
[ERROR] /src/main/java/Foo.java:[20,9] cannot find symbol
[ERROR] Failed to execute goal`

	rep := parseWith(t, "maven", input)
	require.Equal(t, 2, rep.Len())
	issues := rep.Issues()

	assert.Equal(t, "/src/main/java/Foo.java", issues[0].FileName)
	assert.Equal(t, 12, issues[0].LineStart)
	assert.Equal(t, 5, issues[0].ColumnStart)
	assert.Equal(t, "deprecation", issues[0].Type)
	assert.Equal(t, issue.SeverityNormal, issues[0].Severity)
	assert.Equal(t, "bar() in Baz has been deprecated", issues[0].Message)

	assert.Equal(t, issue.SeverityError, issues[1].Severity)
	assert.Equal(t, "", issues[1].Type)
}

func TestMSBuild(t *testing.T) {
	input := `Build started.
1>Program.cs(12,5): warning CS0168: The variable 'e' is declared but never used [C:\src\app.csproj]
src/app.ts(3,7): error TS2322: Type 'string' is not assignable to type 'number'.
Build FAILED.`

	rep := parseWith(t, "msbuild", input)
	require.Equal(t, 2, rep.Len())
	issues := rep.Issues()

	assert.Equal(t, "Program.cs", issues[0].FileName)
	assert.Equal(t, 12, issues[0].LineStart)
	assert.Equal(t, 5, issues[0].ColumnStart)
	assert.Equal(t, "CS0168", issues[0].Type)
	assert.Equal(t, `C:\src\app.csproj`, issues[0].ModuleName)
	assert.Equal(t, issue.SeverityNormal, issues[0].Severity)

	assert.Equal(t, "src/app.ts", issues[1].FileName)
	assert.Equal(t, "TS2322", issues[1].Type)
	assert.Equal(t, issue.SeverityError, issues[1].Severity)
}

func TestPylint(t *testing.T) {
	input := `************* Module app.models
app/models.py:10:0: C0301: Line too long (120/100) (line-too-long)
app/models.py:22:4: E1101: Instance of 'Foo' has no 'bar' member (no-member)
app/models.py:30:8: W0612: Unused variable 'x' (unused-variable)

------------------------------------------------------------------
Your code has been rated at 7.50/10`

	rep := parseWith(t, "pylint", input)
	require.Equal(t, 3, rep.Len())
	issues := rep.Issues()

	assert.Equal(t, "line-too-long", issues[0].Type)
	assert.Equal(t, "Line too long (120/100)", issues[0].Message)
	assert.Equal(t, 1, issues[0].ColumnStart)
	assert.Equal(t, "Convention", issues[0].Category)
	assert.Equal(t, issue.SeverityLow, issues[0].Severity)

	assert.Equal(t, issue.SeverityHigh, issues[1].Severity)
	assert.Equal(t, 5, issues[1].ColumnStart)
	assert.Equal(t, issue.SeverityNormal, issues[2].Severity)
	assert.Equal(t, "unused-variable", issues[2].Type)
}

func TestRustc(t *testing.T) {
	input := "   Compiling demo v0.1.0 (/src/demo)\n" +
		"warning: unused variable: `x`\n" +
		" --> src/main.rs:2:9\n" +
		"  |\n" +
		"2 |     let x = 5;\n" +
		"  |         ^ help: if this is intentional, prefix it with an underscore: `_x`\n" +
		"  |\n" +
		"  = note: `#[warn(unused_variables)]` on by default\n" +
		"\n" +
		"error[E0308]: mismatched types\n" +
		" --> src/main.rs:4:18\n" +
		"  |\n" +
		"4 |     let y: u32 = \"a\";\n" +
		"  |            ---   ^^^ expected `u32`, found `&str`\n" +
		"\n" +
		"warning: `demo` (bin \"demo\") generated 1 warning\n" +
		"error: could not compile `demo` due to previous error\n"

	rep := parseWith(t, "rustc", input)
	require.Equal(t, 2, rep.Len())
	issues := rep.Issues()

	assert.Equal(t, "src/main.rs", issues[0].FileName)
	assert.Equal(t, 2, issues[0].LineStart)
	assert.Equal(t, 9, issues[0].ColumnStart)
	assert.Equal(t, "unused variable: `x`", issues[0].Message)
	assert.Equal(t, issue.SeverityNormal, issues[0].Severity)
	assert.Equal(t, "note: `#[warn(unused_variables)]` on by default", issues[0].Description)

	assert.Equal(t, "E0308", issues[1].Type)
	assert.Equal(t, 4, issues[1].LineStart)
	assert.Equal(t, issue.SeverityError, issues[1].Severity)
	assert.Equal(t, "Type", issues[1].Category)
}

const semgrepOutput = `{
  "results": [
    {
      "check_id": "go.lang.security.audit.sqli.string-formatted-query",
      "path": "internal/db/query.go",
      "start": {"line": 10, "col": 2},
      "end": {"line": 12, "col": 20},
      "extra": {
        "message": "String-formatted SQL query",
        "severity": "ERROR",
        "metadata": {
          "category": "security",
          "cwe": ["CWE-89: SQL Injection"],
          "references": ["https://owasp.org/Top10/A03_2021-Injection"]
        }
      }
    },
    {
      "check_id": "go.lang.style.todo",
      "path": "main.go",
      "start": {"line": 3, "col": 1},
      "end": {"line": 3, "col": 10},
      "extra": {"message": "", "severity": "INFO", "metadata": {"cwe": "CWE-1"}}
    },
    {
      "check_id": "go.lang.best-practice.defer",
      "path": "main.go",
      "start": {"line": 7, "col": 1},
      "end": {"line": 7, "col": 4},
      "extra": {"message": "Deferred call in loop", "severity": "WARNING", "metadata": {}}
    }
  ],
  "errors": []
}`

func TestSemgrep(t *testing.T) {
	rep := parseWith(t, "semgrep", semgrepOutput)
	require.Equal(t, 2, rep.Len())
	issues := rep.Issues()

	first := issues[0]
	assert.Equal(t, "internal/db/query.go", first.FileName)
	assert.Equal(t, 10, first.LineStart)
	assert.Equal(t, 12, first.LineEnd)
	assert.Equal(t, 2, first.ColumnStart)
	assert.Equal(t, 20, first.ColumnEnd)
	assert.Equal(t, issue.SeverityHigh, first.Severity)
	assert.Equal(t, "security", first.Category)
	assert.Equal(t, "CWE-89: SQL Injection\nhttps://owasp.org/Top10/A03_2021-Injection", first.Description)

	assert.Equal(t, issue.SeverityNormal, issues[1].Severity)

	require.Equal(t, 1, rep.ErrorCount(), "the record without message is logged")
	assert.Equal(t, "go.lang.style.todo", rep.Errors()[0].Text)
	assert.Equal(t, 2, rep.Errors()[0].Line)
}

func TestSemgrep_Malformed(t *testing.T) {
	rep := parseWith(t, "semgrep", `{"results": [`)
	assert.Equal(t, 0, rep.Len())
	assert.Equal(t, 1, rep.ErrorCount())
}

func TestSemgrep_LargeSingleLineReport(t *testing.T) {
	const n = 30000
	var sb strings.Builder
	sb.WriteString(`{"results":[`)
	for i := range n {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"check_id":"go.lang.security.audit.xss.no-direct-write","path":"internal/handler/file_%05d.go",`+
			`"start":{"line":%d,"col":2},"end":{"line":%d,"col":40},`+
			`"extra":{"message":"Detected direct write to the response writer","severity":"WARNING","metadata":{"category":"security"}}}`,
			i, i+1, i+1)
	}
	sb.WriteString(`],"errors":[]}`)
	doc := sb.String()
	require.Greater(t, len(doc), 4<<20)
	require.NotContains(t, doc, "\n")

	src := parser.StringSource("semgrep.json", doc)
	assert.Equal(t, []string{"semgrep"}, detectIDs(Default(), src))

	e, ok := Default().Lookup("semgrep")
	require.True(t, ok)
	rep, err := e.Parse(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Lines())
	require.Equal(t, n, rep.Len())
	assert.Equal(t, 0, rep.ErrorCount())
	assert.Equal(t, "internal/handler/file_29999.go", rep.Issues()[n-1].FileName)
	assert.Equal(t, issue.SeverityNormal, rep.Issues()[0].Severity)
}

// fixtureLines collects every line used by the text tool tests above.
var prefilterFixtures = map[string][]string{
	"gcc": {
		"src/main.c:10:5: warning: unused variable 'x' [-Wunused-variable]",
		"src/main.c:20: error: expected ';' before '}' token",
		"src/main.c:30:1: fatal error: stdio.h: No such file or directory",
		"src/util.h:3:10: note: declared here",
		"make: *** [Makefile:2: all] Error 1",
		"src/main.c:10:5: remark: nothing",
	},
	"msbuild": {
		"1>Program.cs(12,5): warning CS0168: The variable 'e' is declared but never used [C:\\src\\app.csproj]",
		"src/app.ts(3,7): error TS2322: Type 'string' is not assignable to type 'number'.",
		"Program.cs(1,1,2,2): fatal error CS0001: boom",
		"Build FAILED.",
	},
}

func TestBuiltinPrefiltersAreSound(t *testing.T) {
	reg := Default()
	for id, lines := range prefilterFixtures {
		e, ok := reg.Lookup(id)
		require.True(t, ok)
		cfg := e.Config()
		require.Equal(t, parser.StrategyPrefiltered, cfg.Strategy)
		for _, line := range lines {
			assert.True(t, cfg.PrefilterSound(line), "%s: %q", id, line)
		}
	}
}

func TestRegistry_Default(t *testing.T) {
	reg := Default()
	assert.Equal(t, []string{
		"gcc", "go", "golangci-lint", "gotest", "javac",
		"maven", "msbuild", "pylint", "rustc", "semgrep",
	}, reg.IDs())
	assert.Equal(t, 10, reg.Len())

	for _, id := range reg.IDs() {
		e, ok := reg.Lookup(id)
		require.True(t, ok)
		assert.Equal(t, id, e.ID())
		assert.NotEmpty(t, e.Name())
	}
}

func TestRegistry_Engines(t *testing.T) {
	reg := Default()

	engines, err := reg.Engines([]string{"rustc", "gcc"})
	require.NoError(t, err)
	require.Len(t, engines, 2)
	assert.Equal(t, "rustc", engines[0].ID())
	assert.Equal(t, "gcc", engines[1].ID())

	all, err := reg.Engines(nil)
	require.NoError(t, err)
	assert.Len(t, all, reg.Len())

	_, err = reg.Engines([]string{"cobol"})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := Default()
	cfg, err := FromDefinition(Definition{ID: "gcc", Pattern: `^(.+)$`, Message: "1"})
	require.NoError(t, err)
	assert.Error(t, reg.Register(cfg))

	assert.ErrorIs(t, reg.Register(parser.Config{ID: "broken"}), parser.ErrInvalidConfig)
}

func detectIDs(reg *Registry, src parser.Source) []string {
	var ids []string
	for _, e := range reg.Detect(src) {
		ids = append(ids, e.ID())
	}
	return ids
}

func TestRegistry_Detect(t *testing.T) {
	reg := Default()

	assert.Equal(t, []string{"gcc"}, detectIDs(reg, parser.StringSource("build.log",
		"gcc -c main.c\nsrc/main.c:10:5: warning: unused variable 'x' [-Wunused-variable]\n")))

	assert.Equal(t, []string{"gotest"}, detectIDs(reg, parser.StringSource("test.log",
		"=== RUN   TestX\n--- FAIL: TestX (0.00s)\nFAIL\n")))

	assert.Equal(t, []string{"semgrep"}, detectIDs(reg, parser.StringSource("semgrep.json", semgrepOutput)))

	assert.Empty(t, detectIDs(reg, parser.StringSource("notes.txt", "nothing to see here")))

	stdin := parser.ReaderSource("stdin", strings.NewReader(""))
	assert.Len(t, detectIDs(reg, stdin), reg.Len(), "single-use input is offered to every tool")
}

func TestFromDefinition(t *testing.T) {
	cfg, err := FromDefinition(Definition{
		ID:              "eslint-compact",
		Pattern:         `^(?P<file>.+): line (?P<line>\d+), col (\d+), (\w+) - (.+?)(?: \((?P<rule>[\w/-]+)\))?$`,
		Strategy:        "prefiltered",
		Prefilter:       []string{": line "},
		File:            "file",
		Line:            "line",
		Column:          "3",
		Severity:        "4",
		Message:         "5",
		Type:            "rule",
		DefaultSeverity: "low",
	})
	require.NoError(t, err)

	reg := NewRegistry()
	require.NoError(t, reg.Register(cfg))
	e, _ := reg.Lookup("eslint-compact")

	input := "src/a.js: line 3, col 7, Error - 'x' is not defined. (no-undef)\n" +
		"src/b.js: line 9, col 1, Warning - Unexpected console statement. (no-console)\n" +
		"2 problems"
	rep, err := e.ParseString(context.Background(), "eslint.log", input)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Len())

	first := rep.Issues()[0]
	assert.Equal(t, "src/a.js", first.FileName)
	assert.Equal(t, 3, first.LineStart)
	assert.Equal(t, 7, first.ColumnStart)
	assert.Equal(t, issue.SeverityError, first.Severity)
	assert.Equal(t, "no-undef", first.Type)
	assert.Equal(t, "'x' is not defined.", first.Message)
	assert.Equal(t, "eslint-compact", first.Origin)

	assert.Equal(t, issue.SeverityNormal, rep.Issues()[1].Severity)
}

func TestFromDefinition_DefaultSeverity(t *testing.T) {
	cfg, err := FromDefinition(Definition{
		ID:              "todo",
		Pattern:         `^(\S+):(\w+): TODO (.+)$`,
		File:            "1",
		Line:            "2",
		Message:         "3",
		DefaultSeverity: "LOW",
		Extensions:      []string{".txt"},
	})
	require.NoError(t, err)
	e := parser.MustNew(cfg)

	rep, err := e.ParseString(context.Background(), "todo.txt", "a.go:12: TODO fix\na.go:xx: TODO broken")
	require.NoError(t, err)
	require.Equal(t, 1, rep.Len())
	assert.Equal(t, issue.SeverityLow, rep.Issues()[0].Severity)
	require.Equal(t, 1, rep.ErrorCount())
	assert.Contains(t, rep.Errors()[0].Cause, `invalid line "xx"`)

	assert.False(t, e.Accepts(parser.StringSource("out.json", "")))
}

func TestFromDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"bad pattern", Definition{ID: "x", Pattern: `(`, Message: "1"}},
		{"no message", Definition{ID: "x", Pattern: `(.+)`}},
		{"group out of range", Definition{ID: "x", Pattern: `(.+)`, Message: "2"}},
		{"unknown group name", Definition{ID: "x", Pattern: `(.+)`, Message: "msg"}},
		{"json strategy", Definition{ID: "x", Strategy: "json", Pattern: `(.+)`, Message: "1"}},
		{"unknown strategy", Definition{ID: "x", Strategy: "magic", Pattern: `(.+)`, Message: "1"}},
		{"prefiltered without tokens", Definition{ID: "x", Strategy: "prefiltered", Pattern: `(.+)`, Message: "1"}},
		{"bad default severity", Definition{ID: "x", Pattern: `(.+)`, Message: "1", DefaultSeverity: "urgent"}},
		{"missing id", Definition{Pattern: `(.+)`, Message: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDefinition(tt.def)
			assert.ErrorIs(t, err, parser.ErrInvalidConfig)
		})
	}
}

func TestRegisterDefinitions(t *testing.T) {
	reg := Default()
	err := reg.RegisterDefinitions([]Definition{
		{ID: "custom", Pattern: `^CUSTOM (.+)$`, Message: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", reg.IDs()[reg.Len()-1])

	err = reg.RegisterDefinitions([]Definition{{ID: "bad", Pattern: `(`, Message: "1"}})
	assert.ErrorIs(t, err, parser.ErrInvalidConfig)
}
