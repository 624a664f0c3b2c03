package helpers

import "fmt"

// FormatVolume formats a share volume with thousand separators for logs
// and API summaries
func FormatVolume(volume int64) string {
	negative := volume < 0
	if negative {
		volume = -volume
	}

	str := fmt.Sprintf("%d", volume)
	length := len(str)

	if length <= 3 {
		if negative {
			return "-" + str
		}
		return str
	}

	var result string
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}

	if negative {
		return "-" + result
	}
	return result
}

// HumanizeVolume renders a volume in compact form (1.25B, 340.0M, 12.5K)
// for dashboard badges
func HumanizeVolume(volume int64) string {
	v := float64(volume)
	switch {
	case v >= 1_000_000_000 || v <= -1_000_000_000:
		return fmt.Sprintf("%.2fB", v/1_000_000_000)
	case v >= 1_000_000 || v <= -1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 1_000 || v <= -1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%d", volume)
	}
}
