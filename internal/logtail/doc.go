// Package logtail reads the tail of easel's own log file for the log view.
//
// # Reading Log Files
//
// Read uses a ring buffer to keep only the last maxLines lines, so memory is
// bounded by the requested window rather than the file size. Lines are
// returned oldest first.
//
// # Entry Format
//
// easel logs through zerolog, one JSON object per line:
//
//	{"level":"info","component":"session","job":"…","time":"…","message":"job submitted"}
//
// Parse lifts level, time and message into Entry and keeps every other key
// in Fields. Lines that are not JSON, such as a panic trace, are kept with
// the whole line as the message.
//
// Example usage:
//
//	entries, err := logtail.Read(cfg.LogPath, 400)
//	if err != nil {
//		return err
//	}
//	for _, e := range entries {
//		fmt.Println(e.Level, e.Message, e.FieldString())
//	}
package logtail
