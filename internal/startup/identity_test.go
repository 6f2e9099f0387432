package startup

import "testing"

func TestNormalizeIdentityEquivalence(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{"case fold", `C:\Program Files\App\app.exe`, `c:\program files\app\APP.EXE`},
		{"separator fold", `C:\Tools\run.exe`, `C:/Tools/run.exe`},
		{"quoted vs bare", `"C:\Tools\run.exe"`, `C:\Tools\run.exe`},
		{"arg whitespace", `C:\Tools\run.exe --flag  value`, `C:\Tools\run.exe  --flag value`},
		{"doubled separators", `C:\\Tools\\run.exe`, `C:\Tools\run.exe`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ida, idb := NormalizeIdentity(tc.a), NormalizeIdentity(tc.b)
			if ida.Key() != idb.Key() {
				t.Fatalf("identities differ: %q vs %q", ida.Key(), idb.Key())
			}
		})
	}
}

func TestNormalizeIdentityDistinct(t *testing.T) {
	a := NormalizeIdentity(`C:\A\tool.exe --mode=1`)
	b := NormalizeIdentity(`C:\A\tool.exe --mode=2`)
	if a.Key() == b.Key() {
		t.Fatal("different argument strings must produce different identities")
	}

	c := NormalizeIdentity(`C:\A\tool.exe`)
	d := NormalizeIdentity(`C:\B\tool.exe`)
	if c.Key() == d.Key() {
		t.Fatal("same binary name in different directories must stay distinct")
	}
}

func TestNormalizeIdentityEnvExpansion(t *testing.T) {
	t.Setenv("TESTROOT", `C:\Apps`)
	id := NormalizeIdentity(`%TESTROOT%\tool.exe`)
	want := NormalizeIdentity(`C:\Apps\tool.exe`)
	if id.Key() != want.Key() {
		t.Fatalf("env token not expanded: got %q want %q", id.Key(), want.Key())
	}
}

func TestNormalizeIdentityUnsetEnvLeftVerbatim(t *testing.T) {
	id := NormalizeIdentity(`%NO_SUCH_VAR_EVER%\tool.exe`)
	if id.Exe == "" {
		t.Fatal("unparseable env token must still yield a non-empty identity")
	}
}

func TestSplitCommandQuoted(t *testing.T) {
	exe, args := SplitCommand(`"C:\Program Files\App\app.exe" --minimized`)
	if exe != `C:\Program Files\App\app.exe` {
		t.Fatalf("exe = %q", exe)
	}
	if args != "--minimized" {
		t.Fatalf("args = %q", args)
	}
}

func TestSplitCommandUnterminatedQuote(t *testing.T) {
	exe, args := SplitCommand(`"C:\Program Files\App\app.exe`)
	if exe != `C:\Program Files\App\app.exe` || args != "" {
		t.Fatalf("got exe=%q args=%q", exe, args)
	}
}

func TestShellSplit(t *testing.T) {
	got := ShellSplit(`--path "C:\With Space\x" -v`)
	want := []string{"--path", `C:\With Space\x`, "-v"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestExeName(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`C:\Tools\Run.EXE`, "run.exe"},
		{`C:\Tools\script.bat`, "script.bat"},
		{`C:\Tools\readme.txt arg`, ""},
		{"", ""},
	}
	for _, tc := range cases {
		id := NormalizeIdentity(tc.raw)
		if got := id.ExeName(); got != tc.want {
			t.Errorf("ExeName(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestFoldPathUNC(t *testing.T) {
	if got := foldPath(`\\Server\Share\app.exe`); got != `\\server\share\app.exe` {
		t.Fatalf("UNC prefix lost: %q", got)
	}
}
