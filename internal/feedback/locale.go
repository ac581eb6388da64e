package feedback

import (
	"fmt"

	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// Locale selects the language of feedback messages.
type Locale string

const (
	English Locale = "en"
	Korean  Locale = "ko"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = English

// phrasebook renders one message for a catalog angle. The action selector is
// true when the user's angle is smaller than the reference angle.
type phrasebook struct {
	labels [pose.NumTriplets]string
	format func(group group, label string, smaller bool, ref, user, diff float64) string
}

type group int

const (
	groupFlex group = iota
	groupShoulder
	groupHip
)

var phrasebooks = map[Locale]*phrasebook{
	English: {
		labels: [pose.NumTriplets]string{
			"left elbow", "right elbow", "left wrist", "right wrist",
			"left knee", "right knee", "left ankle", "right ankle",
			"right arm", "left arm", "left hip", "right hip",
		},
		format: func(g group, label string, smaller bool, ref, user, diff float64) string {
			var action string
			switch g {
			case groupFlex:
				action = pick(smaller, "straighten", "bend")
			case groupShoulder:
				action = pick(smaller, "raise", "lower")
			default:
				action = pick(smaller, "hip angle too wide", "hip angle too narrow")
			}
			return fmt.Sprintf("%s: %s (reference %.1f° / you %.1f° / difference %.1f°)", label, action, ref, user, diff)
		},
	},
	Korean: {
		labels: [pose.NumTriplets]string{
			"왼쪽 팔꿈치 각도", "오른쪽 팔꿈치 각도", "왼쪽 손목 각도", "오른쪽 손목 각도",
			"왼쪽 무릎 각도", "오른쪽 무릎 각도", "왼쪽 발목 각도", "오른쪽 발목 각도",
			"오른쪽 팔", "왼쪽 팔", "왼쪽 골반", "오른쪽 골반",
		},
		format: func(g group, label string, smaller bool, ref, user, diff float64) string {
			var head string
			switch g {
			case groupFlex:
				head = label + "를 " + pick(smaller, "펴세요", "굽히세요")
			case groupShoulder:
				head = label + "을 " + pick(smaller, "올리세요", "내리세요")
			default:
				head = label + " 각도가 " + pick(smaller, "넓습니다", "좁습니다")
			}
			return fmt.Sprintf("%s – 선생님 %.1f° / 학생 %.1f° / 각도 차이 %.1f°", head, ref, user, diff)
		},
	},
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// Locales lists the supported message languages.
func Locales() []Locale {
	return []Locale{English, Korean}
}
