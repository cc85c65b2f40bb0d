package scrapbook

import "regexp"

// Accepted URL shapes: youtube.com/watch?v=ID, youtu.be/ID,
// youtube.com/embed/ID. The ID runs until the next delimiter.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#]+)`),
}

// ExtractVideoID pulls the video identifier out of a submitted YouTube URL.
// Returns "" when the URL matches no known shape.
func ExtractVideoID(url string) string {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}
