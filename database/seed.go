package database

import "fmt"

// SeedCatalogIfEmpty inserts the demo catalog when a side is empty so the
// recommendation API works before the first external sync.
func (db *CatalogDB) SeedCatalogIfEmpty() error {
	accounts, err := db.CountAccounts()
	if err != nil {
		return err
	}
	if accounts.Total == 0 {
		for _, account := range seedAccounts() {
			if err := db.UpsertAccount(account); err != nil {
				return fmt.Errorf("failed to seed account %s: %w", account.ProductKey, err)
			}
		}
	}

	cards, err := db.CountCards()
	if err != nil {
		return err
	}
	if cards.Total == 0 {
		for _, card := range seedCards() {
			if err := db.UpsertCard(card); err != nil {
				return fmt.Errorf("failed to seed card %s: %w", card.ProductKey, err)
			}
		}
	}
	return nil
}

func seedAccounts() []AccountProduct {
	return []AccountProduct{
		{
			ProductKey:   "acc_kb_salary",
			ProviderName: "KB국민은행",
			ProductName:  "급여우대 플러스 통장",
			AccountKind:  "입출금",
			Summary:      "급여이체 + 생활비 자동이체 조건에서 수수료/우대 혜택",
			OfficialURL:  "https://obank.kbstar.com",
			Tags:         []string{"salary", "daily", "cashback"},
		},
		{
			ProductKey:   "acc_sh_save",
			ProviderName: "신한은행",
			ProductName:  "목표저축 챌린지 적금",
			AccountKind:  "저축",
			Summary:      "저축 목표 달성형 우대금리 제공",
			OfficialURL:  "https://www.shinhan.com",
			Tags:         []string{"savings", "goal", "auto"},
		},
		{
			ProductKey:   "acc_kakao_start",
			ProviderName: "카카오뱅크",
			ProductName:  "스타트업 프렌들리 통장",
			AccountKind:  "입출금",
			Summary:      "초기 금융 사용자를 위한 수수료 부담 완화",
			OfficialURL:  "https://www.kakaobank.com",
			Tags:         []string{"starter", "young", "low-fee"},
		},
		{
			ProductKey:   "acc_woori_fx",
			ProviderName: "우리은행",
			ProductName:  "글로벌 트래블 외화통장",
			AccountKind:  "외화",
			Summary:      "환전 우대와 해외 결제 사용자를 위한 외화 혜택",
			OfficialURL:  "https://www.wooribank.com",
			Tags:         []string{"travel", "global", "fx"},
		},
	}
}

func seedCards() []CardProduct {
	return []CardProduct{
		{
			ProductKey:    "card_shopping_plus",
			ProviderName:  "신한카드",
			ProductName:   "생활혜택 플러스",
			AnnualFeeText: "국내전용 1.2만원",
			Summary:       "장보기/교통/외식 중심 캐시백",
			OfficialURL:   "https://www.shinhancard.com",
			Tags:          []string{"cashback", "daily"},
			Categories:    []string{"grocery", "transport", "dining"},
		},
		{
			ProductKey:    "card_kb_online",
			ProviderName:  "KB국민카드",
			ProductName:   "온라인 맥스",
			AnnualFeeText: "국내전용 1.0만원",
			Summary:       "온라인쇼핑/구독/간편결제 특화",
			OfficialURL:   "https://card.kbcard.com",
			Tags:          []string{"cashback", "online"},
			Categories:    []string{"online", "subscription", "cafe"},
		},
		{
			ProductKey:    "card_samsung_travel",
			ProviderName:  "삼성카드",
			ProductName:   "트래블 마일",
			AnnualFeeText: "국내외겸용 2.5만원",
			Summary:       "해외결제 적립 + 여행 보너스",
			OfficialURL:   "https://www.samsungcard.com",
			Tags:          []string{"travel", "mileage"},
			Categories:    []string{"online"},
		},
		{
			ProductKey:    "card_nh_starter",
			ProviderName:  "NH농협카드",
			ProductName:   "스타트 제로",
			AnnualFeeText: "국내전용 없음",
			Summary:       "연회비 부담 최소 + 기본 적립",
			OfficialURL:   "https://card.nonghyup.com",
			Tags:          []string{"starter", "no-fee"},
			Categories:    []string{"online", "grocery", "transport"},
		},
	}
}
