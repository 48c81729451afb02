// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/localmind/localmind/internal/service/dataset"
	"github.com/localmind/localmind/internal/service/sample"
)

// Handlers 处理器集合
type Handlers struct {
	Dataset *DatasetHandler
	Sample  *SampleHandler
	System  *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(datasetSvc *dataset.Service, sampleSvc *sample.Service) *Handlers {
	return &Handlers{
		Dataset: NewDatasetHandler(datasetSvc),
		Sample:  NewSampleHandler(sampleSvc),
		System:  NewSystemHandler(),
	}
}
