package airplay

import (
	"fmt"
	"strconv"
	"strings"
)

const plistHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
`

// ServerInfoPlist renders the /server-info response.
func ServerInfoPlist(deviceID, model, features string) string {
	var b strings.Builder
	b.WriteString(plistHeader)
	b.WriteString("<dict>\n")
	fmt.Fprintf(&b, "  <key>deviceid</key>\n  <string>%s</string>\n", deviceID)
	fmt.Fprintf(&b, "  <key>features</key>\n  <integer>%d</integer>\n", featuresValue(features))
	fmt.Fprintf(&b, "  <key>model</key>\n  <string>%s</string>\n", model)
	b.WriteString("  <key>protovers</key>\n  <string>1.0</string>\n")
	fmt.Fprintf(&b, "  <key>srcvers</key>\n  <string>%s</string>\n", SourceVersion)
	b.WriteString("</dict>\n</plist>\n")
	return b.String()
}

// PlaybackInfoPlist renders the /playback-info response. rate is 1 when
// playing, 0 otherwise.
func PlaybackInfoPlist(duration, position float64, playing bool) string {
	rate := 0.0
	if playing {
		rate = 1.0
	}

	var b strings.Builder
	b.WriteString(plistHeader)
	b.WriteString("<dict>\n")
	fmt.Fprintf(&b, "  <key>duration</key>\n  <real>%f</real>\n", duration)
	b.WriteString("  <key>loadedTimeRanges</key>\n  <array>\n    <dict>\n")
	fmt.Fprintf(&b, "      <key>duration</key>\n      <real>%f</real>\n", duration)
	b.WriteString("      <key>start</key>\n      <real>0.000000</real>\n")
	b.WriteString("    </dict>\n  </array>\n")
	b.WriteString("  <key>playbackBufferEmpty</key>\n  <true/>\n")
	b.WriteString("  <key>playbackBufferFull</key>\n  <false/>\n")
	b.WriteString("  <key>playbackLikelyToKeepUp</key>\n  <true/>\n")
	fmt.Fprintf(&b, "  <key>position</key>\n  <real>%f</real>\n", position)
	fmt.Fprintf(&b, "  <key>rate</key>\n  <real>%f</real>\n", rate)
	b.WriteString("  <key>readyToPlay</key>\n  <true/>\n")
	b.WriteString("  <key>seekableTimeRanges</key>\n  <array>\n    <dict>\n")
	fmt.Fprintf(&b, "      <key>duration</key>\n      <real>%f</real>\n", duration)
	b.WriteString("      <key>start</key>\n      <real>0.000000</real>\n")
	b.WriteString("    </dict>\n  </array>\n")
	b.WriteString("</dict>\n</plist>\n")
	return b.String()
}

// SlideshowFeaturesPlist renders the /slideshow-features response; the
// bridge advertises no slideshow themes.
func SlideshowFeaturesPlist() string {
	return plistHeader + "<dict>\n  <key>themes</key>\n  <array/>\n</dict>\n</plist>\n"
}

func featuresValue(features string) int64 {
	s := strings.TrimPrefix(strings.TrimSpace(features), "0x")
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0x77
	}
	return v
}
