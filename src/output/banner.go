package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// BannerInfo holds the identity fields printed at the top of a run.
type BannerInfo struct {
	Version string
	Commit  string
	Account string
	Region  string
	Date    string
}

// NewBannerInfo creates a BannerInfo with today's date.
func NewBannerInfo(version, commit, account, region string) BannerInfo {
	return BannerInfo{
		Version: version,
		Commit:  commit,
		Account: account,
		Region:  region,
		Date:    time.Now().UTC().Format("2006-01-02"),
	}
}

// Banner prints the tool name with version and deployment target.
func Banner(w io.Writer, info BannerInfo, color bool) {
	items := buildIdentityText(info, color)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "    %s\n", strings.Join(items, "  "))
}

func buildIdentityText(info BannerInfo, color bool) []string {
	items := []string{paint(color, colorBold+colorCyan, "ImageFreight")}
	if info.Version != "" {
		items = append(items, paint(color, colorCyan, info.Version))
	}
	if info.Commit != "" {
		items = append(items, paint(color, colorCyan, info.Commit))
	}
	switch {
	case info.Account != "" && info.Region != "":
		items = append(items, paint(color, colorCyan, info.Account+" · "+info.Region))
	case info.Region != "":
		items = append(items, paint(color, colorCyan, info.Region))
	}
	if info.Date != "" {
		items = append(items, Dimmed(info.Date, color))
	}
	return items
}
