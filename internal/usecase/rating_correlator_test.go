package usecase

import (
	"reflect"
	"testing"

	"github.com/gearmatch/ratingsync/internal/domain"
)

var mouseUsages = map[string]string{
	"8876":  "work",
	"8878":  "video_games_fps",
	"8879":  "video_games_mmo",
	"22560": "raw_performance",
}

func TestCorrelateRatings(t *testing.T) {
	known := KnownKeys(mouseUsages)

	t.Run("groups visible ratings by product and key", func(t *testing.T) {
		ratings := []domain.RawRating{
			{ExternalID: "1", AttributeCode: "8876", Score: 8.5, Visible: true},
			{ExternalID: "2", AttributeCode: "8878", Score: 7.1, Visible: true},
			{ExternalID: "1", AttributeCode: "8878", Score: 9.0, Visible: true},
		}

		got := CorrelateRatings(ratings, mouseUsages, known)

		want := map[string]domain.AttributeMap{
			"1": {"work": 8.5, "video_games_fps": 9.0},
			"2": {"video_games_fps": 7.1},
		}
		if !reflect.DeepEqual(got.ByID, want) {
			t.Errorf("ByID = %v, want %v", got.ByID, want)
		}
		if !reflect.DeepEqual(got.Order, []string{"1", "2"}) {
			t.Errorf("Order = %v, want [1 2]", got.Order)
		}
		if got.Len() != 2 {
			t.Errorf("Len = %d, want 2", got.Len())
		}
	})

	t.Run("hidden ratings never appear", func(t *testing.T) {
		ratings := []domain.RawRating{
			{ExternalID: "1", AttributeCode: "8876", Score: 8.5, Visible: false},
			{ExternalID: "2", AttributeCode: "8876", Score: 6.0, Visible: true},
			{ExternalID: "2", AttributeCode: "8878", Score: 9.9, Visible: false},
		}

		got := CorrelateRatings(ratings, mouseUsages, known)

		if _, ok := got.ByID["1"]; ok {
			t.Errorf("product with only hidden ratings was correlated: %v", got.ByID["1"])
		}
		if _, ok := got.ByID["2"]["video_games_fps"]; ok {
			t.Errorf("hidden rating leaked into map: %v", got.ByID["2"])
		}
		if !reflect.DeepEqual(got.Order, []string{"2"}) {
			t.Errorf("Order = %v, want [2]", got.Order)
		}
	})

	t.Run("unknown codes are ignored", func(t *testing.T) {
		ratings := []domain.RawRating{
			{ExternalID: "1", AttributeCode: "99999", Score: 5, Visible: true},
			{ExternalID: "1", AttributeCode: "22560", Score: 8, Visible: true},
		}

		got := CorrelateRatings(ratings, mouseUsages, known)

		want := domain.AttributeMap{"raw_performance": 8}
		if !reflect.DeepEqual(got.ByID["1"], want) {
			t.Errorf("map = %v, want %v", got.ByID["1"], want)
		}
	})

	t.Run("keys outside the known set are ignored", func(t *testing.T) {
		ratings := []domain.RawRating{
			{ExternalID: "1", AttributeCode: "8876", Score: 5, Visible: true},
		}
		restricted := map[string]struct{}{"raw_performance": {}}

		got := CorrelateRatings(ratings, mouseUsages, restricted)

		if got.Len() != 0 {
			t.Errorf("Len = %d, want 0", got.Len())
		}
	})

	t.Run("last duplicate wins", func(t *testing.T) {
		ratings := []domain.RawRating{
			{ExternalID: "1", AttributeCode: "8876", Score: 5, Visible: true},
			{ExternalID: "1", AttributeCode: "8876", Score: 6, Visible: true},
		}

		got := CorrelateRatings(ratings, mouseUsages, known)

		if got.ByID["1"]["work"] != 6 {
			t.Errorf("work = %v, want 6", got.ByID["1"]["work"])
		}
	})
}

func TestIndexProductNames(t *testing.T) {
	names := IndexProductNames([]domain.RawExternalProduct{
		{ExternalID: "1", FullName: "Razer Viper Mini"},
		{ExternalID: "2", FullName: "Logitech G305"},
	})

	if names["1"] != "Razer Viper Mini" || names["2"] != "Logitech G305" {
		t.Errorf("names = %v", names)
	}
}

func TestKnownKeys(t *testing.T) {
	got := KnownKeys(mouseUsages)
	want := map[string]struct{}{
		"work": {}, "video_games_fps": {}, "video_games_mmo": {}, "raw_performance": {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KnownKeys = %v, want %v", got, want)
	}
}
