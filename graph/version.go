package graph

import "fmt"

// ChannelVersion is a totally ordered token stamped on a channel each time
// its content changes. The zero value is the null version and precedes all
// others.
type ChannelVersion uint64

// NullVersion precedes every version ever assigned.
const NullVersion ChannelVersion = 0

// Increment yields a token strictly greater than v and greater than any
// version previously issued for the same run, since versions are a single
// monotone counter shared by every channel in the run.
func Increment(v ChannelVersion) ChannelVersion {
	return v + 1
}

// String renders the version as a zero-padded, lexically sortable integer
// token.
func (v ChannelVersion) String() string {
	return fmt.Sprintf("%020d", uint64(v))
}

// Less reports whether v precedes other.
func (v ChannelVersion) Less(other ChannelVersion) bool {
	return v < other
}

// maxVersion returns the greatest version present in m, or NullVersion if m
// is empty.
func maxVersion(m map[string]ChannelVersion) ChannelVersion {
	max := NullVersion
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}
