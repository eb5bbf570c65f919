package model

import "errors"

var (
	// ErrMissingSlug 缺少题目 slug
	ErrMissingSlug = errors.New("artifact slug is required")
	// ErrMissingCode 缺少代码
	ErrMissingCode = errors.New("artifact code is required")
)
