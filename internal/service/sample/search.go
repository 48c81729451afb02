package sample

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/localmind/localmind/internal/model"
	"github.com/localmind/localmind/internal/repository"
)

// ErrEmptyQuery 检索查询为空
var ErrEmptyQuery = errors.New("search query is empty")

// SearchRequest 语义检索请求
type SearchRequest struct {
	Query           string   `json:"query" binding:"required"`
	TopK            int      `json:"top_k"`
	Types           []string `json:"types"`
	Tags            []string `json:"tags"`
	Language        string   `json:"language"`
	SourceType      string   `json:"source_type"`
	IncludeInactive bool     `json:"include_inactive"`
}

// SearchResult 检索结果，按相似度降序
type SearchResult struct {
	Sample *model.TrainingSample `json:"sample"`
	Score  float64               `json:"score"`
}

// SearchResponse 检索响应
type SearchResponse struct {
	Results      []*SearchResult `json:"results"`
	TotalResults int             `json:"total_results"`
	SearchTimeMs int64           `json:"search_time_ms"`
}

// Search 语义检索训练样本。
// 查询向量化后与候选样本逐一计算余弦相似度，取前 K 条。
// 默认只检索活跃样本，各过滤条件之间为 AND 关系。
func (s *Service) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	started := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.Search.DefaultTopK
	}
	if topK > s.cfg.Search.MaxTopK {
		topK = s.cfg.Search.MaxTopK
	}

	queryVector, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	filter := &repository.SampleFilter{
		Types:      req.Types,
		Tags:       req.Tags,
		Language:   req.Language,
		SourceType: req.SourceType,
	}
	if !req.IncludeInactive {
		active := true
		filter.IsActive = &active
	}

	candidates, err := s.store.FindMany(filter, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	results := make([]*SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		if len(candidate.Embedding) == 0 {
			continue
		}
		results = append(results, &SearchResult{
			Sample: candidate,
			Score:  CosineSimilarity(queryVector, candidate.Embedding),
		})
	}

	// 相似度降序，分数相同时新样本优先
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Sample.CreatedAt.After(results[j].Sample.CreatedAt)
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		SearchTimeMs: time.Since(started).Milliseconds(),
	}, nil
}

// embedQuery 向量化查询文本，命中缓存时跳过远端调用
func (s *Service) embedQuery(ctx context.Context, query string) (model.Vector, error) {
	if s.rdb == nil {
		return s.embedder.Embed(ctx, query)
	}

	key := s.queryCacheKey(query)
	if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var vector model.Vector
		if err := json.Unmarshal(cached, &vector); err == nil && len(vector) > 0 {
			return vector, nil
		}
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vector); err == nil {
		ttl := time.Duration(s.cfg.Search.CacheTTLSec) * time.Second
		if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			log.Printf("Warning: failed to cache query vector: %v", err)
		}
	}
	return vector, nil
}

func (s *Service) queryCacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return s.cfg.Search.CachePrefix + hex.EncodeToString(sum[:])
}

// CosineSimilarity 计算两个向量的余弦相似度。
// 维度不一致或任一向量模为零时返回 0。
func CosineSimilarity(a, b model.Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
