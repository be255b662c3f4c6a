package ffmpeg

import "testing"

func TestClassifyFailure_PermissionDenied(t *testing.T) {
	msg := ClassifyFailure("Error opening input: Permission denied", 1)
	want := "Errore permessi: impossibile accedere al file. Verifica i permessi del file e della directory."
	if msg != want {
		t.Fatalf("got %q want %q", msg, want)
	}
}

func TestClassifyFailure_NoSuchFile(t *testing.T) {
	msg := ClassifyFailure("in.mov: No such file or directory", 1)
	if msg != "File o directory non trovato. Verifica che il percorso sia corretto." {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestClassifyFailure_InvalidData(t *testing.T) {
	msg := ClassifyFailure("invalid data found when processing input", 1)
	if msg != "File video corrotto o formato non supportato." {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestClassifyFailure_FallsBackToLastErrorLine(t *testing.T) {
	stderr := "frame=  1\nsome warning\nConversion failed!\n"
	msg := ClassifyFailure(stderr, 1)
	if msg != "Conversion failed!" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestClassifyFailure_EmptyStderr(t *testing.T) {
	msg := ClassifyFailure("", 2)
	if msg != "Errore FFmpeg (codice: 2)" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestClampPercent(t *testing.T) {
	cases := map[int]int{-5: 0, 0: 0, 50: 50, 100: 100, 150: 100}
	for in, want := range cases {
		if got := clampPercent(in); got != want {
			t.Fatalf("clampPercent(%d) = %d, want %d", in, got, want)
		}
	}
}
