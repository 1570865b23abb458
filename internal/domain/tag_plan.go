package domain

// Transition is the tag state change decided for a run.
type Transition string

const (
	TransitionNoChange Transition = "no_change"
	TransitionBump     Transition = "bump"
	TransitionReseat   Transition = "reseat"
)

// DeleteRefPrefix marks a pushed ref name as a remote deletion.
const DeleteRefPrefix = ":"

// TagOperation is a single repository or remote mutation.
type TagOperation struct {
	Type   OperationType `json:"type"`
	Tag    string        `json:"tag"`
	Commit string        `json:"commit,omitempty"`
}

// RefName returns the name handed to a remote push.
func (op TagOperation) RefName() string {
	if op.Type == OperationTypePushDeleteTag {
		return DeleteRefPrefix + op.Tag
	}
	return op.Tag
}

// TagPlan is the ordered list of operations for a transition.
type TagPlan struct {
	Transition Transition     `json:"transition"`
	Tag        string         `json:"tag,omitempty"`
	Operations []TagOperation `json:"operations"`
}

// PlanTransition decides the tag transition without touching the repository.
// A new version is tagged at head; an unchanged version with a reseat signal
// has its tag deleted and recreated at head; anything else is a no-op.
// Remote deletion always precedes the remote push of the recreated tag.
func PlanTransition(latest, next *Version, dominant UpdateType, head string, push bool) TagPlan {
	switch {
	case !next.Equal(latest):
		tag := next.TagName()
		ops := []TagOperation{{Type: OperationTypeCreateTag, Tag: tag, Commit: head}}
		if push {
			ops = append(ops, TagOperation{Type: OperationTypePushTag, Tag: tag})
		}
		return TagPlan{Transition: TransitionBump, Tag: tag, Operations: ops}
	case dominant == UpdateReseat:
		tag := latest.TagName()
		ops := []TagOperation{
			{Type: OperationTypeDeleteTag, Tag: tag},
			{Type: OperationTypeCreateTag, Tag: tag, Commit: head},
		}
		if push {
			ops = append(ops,
				TagOperation{Type: OperationTypePushDeleteTag, Tag: tag},
				TagOperation{Type: OperationTypePushTag, Tag: tag},
			)
		}
		return TagPlan{Transition: TransitionReseat, Tag: tag, Operations: ops}
	default:
		return TagPlan{Transition: TransitionNoChange, Operations: []TagOperation{}}
	}
}
