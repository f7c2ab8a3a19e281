package mappers

import (
	api "github.com/editalhub/edital-api/api/v1alpha1"
	"github.com/editalhub/edital-api/internal/store/model"
)

func DocumentToApi(d model.Document) api.Document {
	return api.Document{
		Id:             d.ID,
		DisplayName:    d.DisplayName,
		Status:         string(d.Status),
		StatusInfo:     d.StatusInfo,
		ContestName:    d.ContestName,
		ExaminingBoard: d.ExaminingBoard,
		ExamDate:       d.ExamDate,
		AttemptCount:   d.AttemptCount,
		CreatedAt:      d.CreatedAt,
	}
}

func DocumentListToApi(documents model.DocumentList) api.DocumentList {
	out := make(api.DocumentList, 0, len(documents))
	for _, d := range documents {
		out = append(out, DocumentToApi(d))
	}
	return out
}
