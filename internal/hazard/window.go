package hazard

import (
	"fmt"
	"time"
)

// AdviseDriveWindow turns the delay risk into a departure recommendation.
func AdviseDriveWindow(delay DelayRiskScore, departure time.Time) DriveWindowAdvice {
	switch delay.Level {
	case RiskCritical:
		return DriveWindowAdvice{
			Action:         Postpone,
			Reason:         "Severe weather makes travel dangerous; postpone the trip if possible",
			AlternateRoute: true,
		}
	case RiskHigh:
		return shifted(DepartLater, departure, 120,
			"Conditions are expected to improve; leaving about two hours later reduces delay risk", true)
	case RiskMedium:
		if departure.Hour() > 6 {
			return shifted(DepartEarlier, departure, -30,
				"Leaving 30 minutes earlier helps you get ahead of deteriorating weather", false)
		}
		return DriveWindowAdvice{
			Action: DepartNow,
			Reason: "You are already leaving early; expect some weather along the way",
		}
	default:
		return DriveWindowAdvice{
			Action: DepartNow,
			Reason: "Conditions look favorable for your planned departure",
		}
	}
}

func shifted(action DepartureAction, departure time.Time, minutes int, reason string, alternate bool) DriveWindowAdvice {
	suggested := departure.Add(time.Duration(minutes) * time.Minute)
	return DriveWindowAdvice{
		Action:             action,
		SuggestedDeparture: &suggested,
		Reason:             reason,
		ShiftMinutes:       minutes,
		AlternateRoute:     alternate,
	}
}

// String renders the advice for logs.
func (a DriveWindowAdvice) String() string {
	if a.SuggestedDeparture == nil {
		return string(a.Action)
	}
	return fmt.Sprintf("%s (%+d min, %s)", a.Action, a.ShiftMinutes, a.SuggestedDeparture.Format(time.RFC3339))
}
