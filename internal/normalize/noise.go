package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Receipt headers, payment fields and envelope boilerplate. A line containing
// any of these is never a drug name.
var noiseKeywords = []string{
	"환자정보", "병원정보", "영수증", "현금", "현금영수증", "사업자등록", "사업장소재지", "발행일", "교부번호",
	"약제비", "본인부담", "보험자부담", "총수납", "주의사항", "복약안내", "약품사진", "약품명", "투약량", "횟수", "일수",
	"표시대로복용", "아침", "점심", "저녁", "취침전", "약국", "조제약", "복약", "조제일자", "발행기관", "총수납금액",
	"현금승인", "영수증번호", "사업자등록번호", "복용완료일", "투약량횟수일수", "생리통에", "효과", "일반", "제와",
}

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{2,}원$`),
	regexp.MustCompile(`^[\d,]{2,}원$`),
	regexp.MustCompile(`^\d{3,}-?\d{2}-?\d{5}$`),
	regexp.MustCompile(`^\d{8}$`),
	regexp.MustCompile(`^\d{4}-?\d{2}-?\d{2}$`),
}

// IsNoise reports whether a normalized line is structurally not drug related.
func IsNoise(line string) bool {
	if utf8.RuneCountInString(line) <= 1 {
		return true
	}
	for _, k := range noiseKeywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	for _, re := range noisePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
