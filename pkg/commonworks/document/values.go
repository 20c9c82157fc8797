package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "20060102", time.RFC3339}

// parseDate accepts ISO dates and the compact CWR form. CWR writes
// 00000000 for "no date".
func parseDate(s flexString) (time.Time, error) {
	v := strings.TrimSpace(string(s))
	if v == "" || strings.Trim(v, "0") == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

// parseDuration reads HHMMSS (or HH:MM:SS).
func parseDuration(s flexString) (time.Duration, error) {
	v := strings.ReplaceAll(strings.TrimSpace(string(s)), ":", "")
	if v == "" || strings.Trim(v, "0") == "" {
		return 0, nil
	}
	if len(v) != 6 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	h, herr := strconv.Atoi(v[0:2])
	m, merr := strconv.Atoi(v[2:4])
	sec, serr := strconv.Atoi(v[4:6])
	if herr != nil || merr != nil || serr != nil || m > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

func parseInt(s flexString) (int, error) {
	v := strings.TrimSpace(string(s))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func parseShares(r rawShares) (Shares, error) {
	sh := Shares{
		PRSociety: r.PRSociety.String(),
		PRShare:   float64(r.PRShare),
		MRSociety: r.MRSociety.String(),
		MRShare:   float64(r.MRShare),
		SRSociety: r.SRSociety.String(),
		SRShare:   float64(r.SRShare),
	}
	for _, v := range []float64{sh.PRShare, sh.MRShare, sh.SRShare} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return Shares{}, fmt.Errorf("share %.2f out of range", v)
		}
	}
	return sh, nil
}
