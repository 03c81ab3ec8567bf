package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractInteger(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		def  int
		want int
	}{
		{"plain", "12345", 0, 12345},
		{"space grouped", "Цена: 1 234 567 руб", 0, 1234567},
		{"comma grouped", "1,500 items", 0, 1500},
		{"negative", "Скидка -15%", 0, -15},
		{"fractional truncated", "1,500.50 руб", 0, 1500},
		{"embedded", "Код DIGIS: 98765", 0, 98765},
		{"no number", "нет числа", 7, 7},
		{"empty", "", -1, -1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ExtractInteger(tc.text, tc.def))
		})
	}
}

func TestFirstEnglishWord(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Epson", FirstEnglishWord("Проектор Epson EB-L530U", 2))
	require.Equal(t, "iPhone", FirstEnglishWord("Смартфон iPhone, 15 Pro", 2))
	require.Equal(t, "", FirstEnglishWord("Кабель питания ПВС", 2))
	require.Equal(t, "", FirstEnglishWord("ТВ 4K UHD", 2)) // too short
}

func TestIsEnglishWord(t *testing.T) {
	t.Parallel()

	require.True(t, IsEnglishWord("Sony"))
	require.False(t, IsEnglishWord("Sony4K"))
	require.False(t, IsEnglishWord("Сони"))
	require.False(t, IsEnglishWord(""))
}
