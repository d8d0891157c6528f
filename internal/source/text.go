package source

// TextExtractor returns the bytes unchanged. Plain text is analysed exactly as
// supplied so offsets match the caller's file.
type TextExtractor struct{}

func (e *TextExtractor) Extract(data []byte) (string, error) {
	return string(data), nil
}
