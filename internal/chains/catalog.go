package chains

import "github.com/julianstephens/daychain/internal/models"

// Well-known step ids shared by every template.
const (
	StepExitGate = "exit-gate"
	StepLeave    = "leave"
	StepTakeMeds = "take-meds"
)

var defaultGateTags = []string{"keys", "phone", "wallet", "laptop", "meds"}

func exitGate() models.ChainStep {
	return models.ChainStep{
		ID:          StepExitGate,
		Name:        "Exit gate",
		DurationMin: 5,
		IsRequired:  true,
		GateTags:    defaultGateTags,
	}
}

// leave is the outbound travel leg. Its duration is replaced by the travel time for the anchor.
func leave() models.ChainStep {
	return models.ChainStep{ID: StepLeave, Name: "Leave", IsRequired: true}
}

var catalog = map[models.AnchorType][]models.ChainStep{
	models.AnchorClass: {
		{ID: "pack-bag", Name: "Pack bag", DurationMin: 10, IsRequired: true},
		{ID: "review-notes", Name: "Review notes", DurationMin: 15, CanSkipWhenLate: true},
		exitGate(),
		leave(),
	},
	models.AnchorSeminar: {
		{ID: "prepare-questions", Name: "Prepare questions", DurationMin: 15, CanSkipWhenLate: true},
		{ID: "pack-bag", Name: "Pack bag", DurationMin: 10, IsRequired: true},
		exitGate(),
		leave(),
	},
	models.AnchorWorkshop: {
		{ID: "gather-materials", Name: "Gather materials", DurationMin: 20, IsRequired: true},
		{ID: "pack-bag", Name: "Pack bag", DurationMin: 10, IsRequired: true},
		exitGate(),
		leave(),
	},
	models.AnchorAppointment: {
		{ID: "gather-documents", Name: "Gather documents", DurationMin: 10, IsRequired: true},
		{ID: "confirm-appointment", Name: "Confirm appointment", DurationMin: 5, CanSkipWhenLate: true},
		exitGate(),
		leave(),
	},
	models.AnchorOther: {
		{ID: "get-ready", Name: "Get ready", DurationMin: 10, IsRequired: true},
		exitGate(),
		leave(),
	},
}

// recoveryMin is the decompression time after an anchor, by type.
var recoveryMin = map[models.AnchorType]int{
	models.AnchorClass:       10,
	models.AnchorSeminar:     10,
	models.AnchorWorkshop:    20,
	models.AnchorAppointment: 15,
	models.AnchorOther:       10,
}

// GetTemplate returns the template for anchorType. Unknown or empty types get the
// "other" template. The returned steps are a copy and may be modified freely.
func GetTemplate(anchorType models.AnchorType) models.ChainTemplate {
	steps, ok := catalog[anchorType]
	if !ok {
		anchorType = models.AnchorOther
		steps = catalog[models.AnchorOther]
	}
	return models.ChainTemplate{AnchorType: anchorType, Steps: copySteps(steps)}
}

// RecoveryMin returns the recovery duration for anchorType.
func RecoveryMin(anchorType models.AnchorType) int {
	if m, ok := recoveryMin[anchorType]; ok {
		return m
	}
	return recoveryMin[models.AnchorOther]
}

func copySteps(steps []models.ChainStep) []models.ChainStep {
	out := make([]models.ChainStep, len(steps))
	for i, s := range steps {
		out[i] = s
		if s.GateTags != nil {
			out[i].GateTags = append([]string(nil), s.GateTags...)
		}
	}
	return out
}
