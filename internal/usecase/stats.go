package usecase

import "github.com/xavierca1/diag-leads/internal/entity"

type Stats struct {
	TotalAnalyzed         int     `json:"total_analyzed"`
	AverageScore          float64 `json:"average_score"`
	HotLeads              int     `json:"hot_leads"`
	WarmLeads             int     `json:"warm_leads"`
	ColdLeads             int     `json:"cold_leads"`
	AverageConversionRate float64 `json:"average_conversion_rate"`
}

// AggregateStats: as médias só consideram leads com o campo preenchido.
// Sem nenhum valor a média fica 0.
func AggregateStats(leads []*entity.Lead) Stats {
	var (
		stats      Stats
		scoreSum   int
		rateSum    float64
		ratedLeads int
	)

	for _, lead := range leads {
		if lead == nil {
			continue
		}
		if lead.LeadScore != nil {
			stats.TotalAnalyzed++
			scoreSum += *lead.LeadScore
		}
		if lead.PredictedConversionRate != nil {
			ratedLeads++
			rateSum += *lead.PredictedConversionRate
		}
		if lead.LeadTemperature != nil {
			switch *lead.LeadTemperature {
			case entity.TemperatureHot:
				stats.HotLeads++
			case entity.TemperatureWarm:
				stats.WarmLeads++
			case entity.TemperatureCold:
				stats.ColdLeads++
			}
		}
	}

	if stats.TotalAnalyzed > 0 {
		stats.AverageScore = float64(scoreSum) / float64(stats.TotalAnalyzed)
	}
	if ratedLeads > 0 {
		stats.AverageConversionRate = rateSum / float64(ratedLeads)
	}
	return stats
}

// CountByStatus devolve todas as colunas do Kanban, inclusive as vazias.
func CountByStatus(leads []*entity.Lead) map[entity.LeadStatus]int {
	counts := make(map[entity.LeadStatus]int, len(entity.LeadStatuses))
	for _, status := range entity.LeadStatuses {
		counts[status] = 0
	}
	for _, lead := range leads {
		if lead != nil {
			counts[lead.Status]++
		}
	}
	return counts
}
