package fanout

import "github.com/shouni/gemini-fanout-kit/pkg/domain"

// Policy は成功した呼び出しのユニットをどのバケットに振り分けるかを決めます。
type Policy int

const (
	// PolicyPerUnit は各ユニットを自身の種別のバケットに入れます。
	PolicyPerUnit Policy = iota
	// PolicyFirstUnit は画像を優先します。画像を含む呼び出しは画像だけを返し、
	// その呼び出しのテキストは捨てます。画像が無ければテキストをすべて返します。
	PolicyFirstUnit
)

func (p Policy) String() string {
	if p == PolicyFirstUnit {
		return "first-unit"
	}
	return "per-unit"
}

// ParsePolicy は文字列からポリシーを解釈します。未知の値は PolicyPerUnit です。
func ParsePolicy(s string) Policy {
	if s == "first-unit" {
		return PolicyFirstUnit
	}
	return PolicyPerUnit
}

// Classify は成功した呼び出し 1 回分のユニットを画像とテキストに振り分けます。
// ユニットが 0 個なら両方とも空です。
func Classify(units []domain.ResponseUnit, policy Policy) (images, texts []string) {
	if len(units) == 0 {
		return nil, nil
	}

	if policy == PolicyFirstUnit {
		for _, u := range units {
			if u.Kind == domain.UnitImage || domain.IsDataURI(u.Value()) {
				images = append(images, u.Value())
			} else {
				texts = append(texts, u.Value())
			}
		}
		if len(images) > 0 {
			return images, nil
		}
		return nil, texts
	}

	for _, u := range units {
		switch u.Kind {
		case domain.UnitImage:
			images = append(images, u.DataURI)
		default:
			texts = append(texts, u.Content)
		}
	}
	return images, texts
}

// Aggregate は結果をディスパッチ順に畳み込みます。
// FirstError はディスパッチ順で最初に失敗した呼び出しのエラーです。
func Aggregate(outcomes []domain.RequestOutcome, policy Policy) domain.AggregateResult {
	var res domain.AggregateResult
	for _, o := range outcomes {
		if !o.Succeeded() {
			res.FailureCount++
			if res.FirstError == nil {
				res.FirstError = o.Err
			}
			continue
		}
		res.SuccessCount++
		images, texts := Classify(o.Units, policy)
		res.Images = append(res.Images, images...)
		res.Texts = append(res.Texts, texts...)
	}
	return res
}
