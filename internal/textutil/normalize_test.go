package textutil

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"ascii punctuation", "The Matrix (1999)", "thematrix1999"},
		{"underscore kept", "file_name-v2", "file_namev2"},
		{"cjk kept", "流浪地球 2", "流浪地球2"},
		{"full width folded", "Ｔｈｅ　Ｍａｔｒｉｘ", "thematrix"},
		{"full width digits", "三体２０２３", "三体2023"},
		{"kana dropped", "すずめの戸締まり", "戸締"},
		{"only symbols", "!!! ???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	samples := []string{
		"The Matrix (1999)",
		"流浪地球 2",
		"Ｔｈｅ　Ｍａｔｒｉｘ",
		"Amélie",
		"  spaced\tout\ntitle  ",
		"进击的巨人 第二季",
		"",
	}
	for _, sample := range samples {
		once := NormalizeTitle(sample)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Errorf("NormalizeTitle not idempotent for %q: %q then %q", sample, once, twice)
		}
	}
}

func TestTitleMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"equal after normalization", "The Matrix", "the  matrix!", true},
		{"a contains b", "The Matrix Reloaded", "Matrix", true},
		{"b contains a", "三体", "三体 第一季", true},
		{"unrelated", "Dune", "Arrival", false},
		{"empty a", "", "Dune", false},
		{"empty b", "Dune", "", false},
		{"normalizes to nothing", "!!!", "Dune", false},
		{"short substring false positive", "It", "Twitter Files", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitleMatch(tt.a, tt.b); got != tt.want {
				t.Errorf("TitleMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTitleMatchSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"The Matrix Reloaded", "matrix"},
		{"三体", "三体 第一季"},
		{"Dune", "Arrival"},
		{"", "x"},
		{"Ｄｕｎｅ", "dune part two"},
	}
	for _, p := range pairs {
		if TitleMatch(p[0], p[1]) != TitleMatch(p[1], p[0]) {
			t.Errorf("TitleMatch not symmetric for %q / %q", p[0], p[1])
		}
	}
}

func TestYearMatches(t *testing.T) {
	tests := []struct {
		query string
		year  int
		want  bool
	}{
		{"Dune 2021", 2021, true},
		{"Dune 2021", 1984, false},
		{"Dune", 1984, true},
		{"Dune 2021", 0, true},
		{"Blade Runner 2049", 2017, false},
	}
	for _, tt := range tests {
		if got := YearMatches(tt.query, tt.year); got != tt.want {
			t.Errorf("YearMatches(%q, %d) = %v, want %v", tt.query, tt.year, got, tt.want)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"进击的巨人 第二季", "进击的巨人"},
		{"斗罗大陆 年番2", "斗罗大陆"},
		{"名侦探柯南 剧场版 黑铁的鱼影", "名侦探柯南 黑铁的鱼影"},
		{"三体 2023年", "三体"},
		{"  The   Matrix  ", "The Matrix"},
		{"Plain Title", "Plain Title"},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.in); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("Home Server #1"); got != "home_server__1" {
		t.Errorf("SanitizeToken = %q", got)
	}
	if got := SanitizeToken("  "); got != "unknown" {
		t.Errorf("SanitizeToken(blank) = %q", got)
	}
}
