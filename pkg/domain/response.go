package domain

import (
	"fmt"
	"strings"
)

// UnitKind はレスポンス単位の種別です。
type UnitKind int

const (
	UnitText UnitKind = iota
	UnitImage
)

func (k UnitKind) String() string {
	if k == UnitImage {
		return "image"
	}
	return "text"
}

// ResponseUnit は 1 回の呼び出しで返ってきたパーツ 1 つ分です。
type ResponseUnit struct {
	Kind    UnitKind
	DataURI string // UnitImage のとき "data:<mime>;base64,<data>"
	Content string // UnitText のとき
}

// ImageUnit は inline data から画像ユニットを作ります。
func ImageUnit(mimeType, base64Data string) ResponseUnit {
	return ResponseUnit{Kind: UnitImage, DataURI: fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)}
}

// TextUnit はテキストユニットを作ります。
func TextUnit(content string) ResponseUnit {
	return ResponseUnit{Kind: UnitText, Content: content}
}

// Value はバケットに積む文字列（data URI かテキスト）を返します。
func (u ResponseUnit) Value() string {
	if u.Kind == UnitImage {
		return u.DataURI
	}
	return u.Content
}

// IsDataURI は文字列が base64 の data URI かどうかを判定します。
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:") && strings.Contains(s, ";base64,")
}

// RequestOutcome はファンアウトした 1 呼び出しの結果です。生成後は変更しません。
type RequestOutcome struct {
	Index int // ディスパッチ順 (0 始まり)
	Units []ResponseUnit
	Err   error
}

// Succeeded は呼び出しが成功したかどうかを返します。
func (o RequestOutcome) Succeeded() bool {
	return o.Err == nil
}

// AggregateResult は 1 回の送信サイクルの集約結果です。次の送信で置き換えられます。
type AggregateResult struct {
	Images       []string
	Texts        []string
	SuccessCount int
	FailureCount int
	FirstError   error // ディスパッチ順で最初に失敗した呼び出しのエラー
}

// Total は集計対象の呼び出し数です。
func (r AggregateResult) Total() int {
	return r.SuccessCount + r.FailureCount
}

// HasContent は表示できる画像かテキストが 1 つ以上あるかを返します。
func (r AggregateResult) HasContent() bool {
	return len(r.Images) > 0 || len(r.Texts) > 0
}
