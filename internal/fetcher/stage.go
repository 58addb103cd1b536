package fetcher

// Stage is a step of the fetch sequence.
type Stage int

const (
	StageListing Stage = iota
	StageSelected
	StageCleaning
	StageDownloading
	StageExtracting
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageListing:
		return "listing releases"
	case StageSelected:
		return "selected"
	case StageCleaning:
		return "cleaning"
	case StageDownloading:
		return "downloading"
	case StageExtracting:
		return "extracting"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event reports progress of one book.
type Event struct {
	Book   string
	Stage  Stage
	Detail string
}
