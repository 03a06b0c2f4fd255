package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
	mongodoc "github.com/sngm3741/guide-ops/api/internal/infrastructure/mongo"
)

// contractMode は生成する店舗の契約形態。
type contractMode int

const (
	modeStandard contractMode = iota
	modeGuaranteed
	modeWaived
	modeUnset
	modePartial
)

const contractModeCount = 5

func generateStores(rng *rand.Rand, count int, now time.Time) []mongodoc.StoreDocument {
	docs := make([]mongodoc.StoreDocument, 0, count)
	seen := make(map[string]struct{}, count)

	for i := 0; i < count; i++ {
		name := storeNames[i%len(storeNames)]
		branch := uniqueBranch(rng, name, seen)
		created := now.UTC().Add(-time.Duration(30+rng.Intn(365)) * 24 * time.Hour)

		doc := mongodoc.StoreDocument{
			ID:                primitive.NewObjectID(),
			Name:              name,
			BranchName:        branch,
			Area:              areas[rng.Intn(len(areas))],
			MalePrice:         randomMalePrice(rng),
			RemainingRequests: rng.Intn(6),
			CreatedAt:         &created,
			UpdatedAt:         &created,
		}
		// 先頭から順に全形態が最低 1 店舗ずつ出るようにする
		applyContract(&doc, contractMode(i%contractModeCount), rng)
		docs = append(docs, doc)
	}
	return docs
}

func applyContract(doc *mongodoc.StoreDocument, mode contractMode, rng *rand.Rand) {
	switch mode {
	case modeStandard:
		doc.PanelFee = intPtr(30000 + 10000*rng.Intn(3))
		doc.ChargePerPerson = intPtr(1000 + 500*rng.Intn(3))
		doc.GuaranteeCount = intPtr(0)
		doc.UnderGuaranteePenalty = intPtr(0)
	case modeGuaranteed:
		// 保証人数を下回ると不足分とペナルティが載る
		doc.PanelFee = intPtr(80000 + 10000*rng.Intn(8))
		doc.ChargePerPerson = intPtr(1000)
		doc.GuaranteeCount = intPtr(20 + rng.Intn(21))
		doc.UnderGuaranteePenalty = intPtr(10000 + 5000*rng.Intn(5))
	case modeWaived:
		// パネル料 0 は紹介料のみの請求
		doc.PanelFee = intPtr(0)
		doc.ChargePerPerson = intPtr(2000 + 500*rng.Intn(3))
		// 保証条件が残っていても免除モードでは使われない
		doc.GuaranteeCount = intPtr(rng.Intn(2) * 30)
		doc.UnderGuaranteePenalty = intPtr(0)
	case modePartial:
		doc.PanelFee = intPtr(50000)
	case modeUnset:
		// 未登録の項目は既定値で請求される
	}
}

func generateVisits(rng *rand.Rand, stores []mongodoc.StoreDocument, total, months int, now time.Time) []mongodoc.VisitDocument {
	if len(stores) == 0 || total <= 0 {
		return nil
	}
	counts := distribute(total, len(stores), 0, total, rng)
	docs := make([]mongodoc.VisitDocument, 0, total)

	for i, store := range stores {
		for j := 0; j < counts[i]; j++ {
			guidedAt := randomGuidedAt(rng, months, now)
			staffType := domain.StaffTypeStaff
			if rng.Intn(5) == 0 {
				staffType = domain.StaffTypeOutstaff
			}
			docs = append(docs, mongodoc.VisitDocument{
				ID:              primitive.NewObjectID(),
				StoreID:         store.ID,
				GuestCount:      1 + rng.Intn(4),
				StaffName:       staffNames[rng.Intn(len(staffNames))],
				StaffType:       string(staffType),
				GuidedAt:        guidedAt.UTC(),
				ConsumedRequest: rng.Intn(10) == 0,
				RequestID:       uuid.NewString(),
				CreatedAt:       guidedAt.UTC(),
			})
		}
	}
	return docs
}

// randomGuidedAt は直近 months ヶ月の営業時間帯 (19:00-翌2:59 JST) から時刻を選ぶ。
// 0 時台は前日の営業日に属する記録として境界の確認に使える。
func randomGuidedAt(rng *rand.Rand, months int, now time.Time) time.Time {
	local := now.In(domain.JST)
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, domain.JST).AddDate(0, -rng.Intn(months), 0)
	days := first.AddDate(0, 1, 0).Sub(first).Hours() / 24
	day := first.AddDate(0, 0, rng.Intn(int(days)))

	hour := guideHours[rng.Intn(len(guideHours))]
	at := time.Date(day.Year(), day.Month(), day.Day(), hour, rng.Intn(60), rng.Intn(60), 0, domain.JST)
	if at.After(now) {
		at = now.Add(-time.Duration(1+rng.Intn(120)) * time.Minute)
	}
	return at
}

func distribute(total, buckets, minPerBucket, maxPerBucket int, rng *rand.Rand) []int {
	if buckets <= 0 {
		return nil
	}
	if maxPerBucket < minPerBucket {
		maxPerBucket = minPerBucket
	}
	if maxPerBucket*buckets < total {
		maxPerBucket = (total + buckets - 1) / buckets
	}
	counts := make([]int, buckets)
	for i := range counts {
		counts[i] = minPerBucket
	}
	remaining := total - minPerBucket*buckets
	if remaining < 0 {
		remaining = 0
	}
	for remaining > 0 {
		i := rng.Intn(buckets)
		if counts[i] >= maxPerBucket {
			continue
		}
		counts[i]++
		remaining--
	}
	return counts
}

func uniqueBranch(rng *rand.Rand, name string, seen map[string]struct{}) string {
	for attempt := 0; ; attempt++ {
		branch := branches[rng.Intn(len(branches))]
		if attempt >= len(branches) {
			branch = fmt.Sprintf("%d号店", attempt)
		}
		key := name + "\x00" + branch
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			return branch
		}
	}
}

func randomMalePrice(rng *rand.Rand) *int {
	switch rng.Intn(3) {
	case 0:
		return nil
	case 1:
		return intPtr(0)
	default:
		return intPtr(3000 + 1000*rng.Intn(6))
	}
}

func intPtr(v int) *int {
	return &v
}

var (
	storeNames = []string{
		"Club 月ノ雫", "艶姫", "夜桜御殿", "白百合倶楽部", "Luxe Palace", "クラブ翔", "凛 -Rin-", "紅椿", "Crystal Muse", "雅ラウンジ", "Velvet Salon",
	}

	branches = []string{"", "本店", "新宿店", "池袋店", "梅田店", "中洲店", "すすきの店", "難波店", "博多店"}

	areas = []string{"歌舞伎町", "池袋", "六本木", "銀座", "北新地", "ミナミ", "中洲", "すすきの"}

	staffNames = []string{"佐藤", "鈴木", "高橋", "田中", "伊藤", "渡辺", "山本", "中村"}

	guideHours = []int{19, 20, 21, 22, 23, 0, 1, 2}
)
