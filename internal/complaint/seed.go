package complaint

import (
	"time"

	"incluverse/backend/internal/config"
	"incluverse/backend/internal/models"
)

// SeedComplaints returns the demonstration collection written on first load,
// dated relative to now. It is not user data.
func SeedComplaints(now time.Time) []models.Complaint {
	day := config.SeedDay
	resolvedAt := now.Add(-1 * day)
	answeredAt := now.Add(-3 * day)
	five := 5

	return []models.Complaint{
		{
			ID:         1,
			Text:       "The wheelchair ramp at the main entrance is too steep and difficult to navigate. It needs to be rebuilt according to accessibility standards.",
			CreatedAt:  now.Add(-2 * day),
			Language:   models.LanguageEnglish,
			Status:     models.StatusResolved,
			Synced:     true,
			Priority:   models.PriorityHigh,
			Category:   "Accessibility",
			Response:   "Thank you for reporting this critical accessibility issue. We have engaged contractors to rebuild the ramp according to ADA standards. Work will begin next week and should be completed within 10 days.",
			ResponseAt: &resolvedAt,
			Rating:     &five,
		},
		{
			ID:         2,
			Text:       "सार्वजनिक शौचालय में दिव्यांगजनों के लिए उचित सुविधा नहीं है। कृपया इसे ठीक करवाएं।",
			CreatedAt:  now.Add(-5 * day),
			Language:   models.LanguageHindi,
			Status:     models.StatusInProgress,
			Synced:     true,
			Priority:   models.PriorityMedium,
			Category:   "Public Facilities",
			Response:   "आपकी शिकायत पर तुरंत कार्यवाही की जा रही है। हमने संबंधित विभाग को निर्देश दिए हैं और 7 दिनों में सुधार कार्य पूरा हो जाएगा।",
			ResponseAt: &answeredAt,
		},
		{
			ID:        3,
			Text:      "The audio announcement system in public transport is not working properly. Visually impaired passengers are facing difficulties.",
			CreatedAt: now.Add(-7 * day),
			Language:  models.LanguageEnglish,
			Status:    models.StatusSubmitted,
			Synced:    true,
			Priority:  models.PriorityHigh,
			Category:  "Transportation",
		},
	}
}
