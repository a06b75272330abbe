package story

type Phase string

const (
	PhaseProcessing Phase = "processing"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// ProcessingStatus is the progress record of one pipeline run. It is always
// written whole; readers never see a partial update.
type ProcessingStatus struct {
	StoryID         string `json:"storyId"`
	Phase           Phase  `json:"phase"`
	ProgressPercent int    `json:"progressPercent"`
	Message         string `json:"message"`
	FramesGenerated *int   `json:"framesGenerated,omitempty"`
	TotalFrames     *int   `json:"totalFrames,omitempty"`
}

func Processing(storyID string, progress int, message string) ProcessingStatus {
	return ProcessingStatus{
		StoryID:         storyID,
		Phase:           PhaseProcessing,
		ProgressPercent: progress,
		Message:         message,
	}
}

func Completed(storyID string, framesGenerated, totalFrames int, message string) ProcessingStatus {
	return ProcessingStatus{
		StoryID:         storyID,
		Phase:           PhaseCompleted,
		ProgressPercent: 100,
		Message:         message,
		FramesGenerated: &framesGenerated,
		TotalFrames:     &totalFrames,
	}
}

func Failed(storyID string, progress int, message string) ProcessingStatus {
	return ProcessingStatus{
		StoryID:         storyID,
		Phase:           PhaseFailed,
		ProgressPercent: progress,
		Message:         message,
	}
}
