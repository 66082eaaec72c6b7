// Package money holds the two-decimal arithmetic shared by pricing and
// statement reconciliation.
package money

import "github.com/shopspring/decimal"

// Tolerance is the absolute difference under which two amounts are considered equal.
const Tolerance = 0.01

func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// Percent returns base*pct/100 rounded to two decimals.
func Percent(base float64, pct float64) float64 {
	return decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

func Sub(a float64, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

func Mul(a float64, b float64) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Half splits an amount into two parts whose sum is exactly the amount.
func Half(v float64) (float64, float64) {
	amount := decimal.NewFromFloat(v).Round(2)
	first := amount.Div(decimal.NewFromInt(2)).Round(2)
	second := amount.Sub(first)
	return first.InexactFloat64(), second.InexactFloat64()
}

// Close reports whether |a-b| does not exceed Tolerance.
func Close(a float64, b float64) bool {
	diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(Tolerance))
}

// DivCeil returns ceil(a/b) computed in decimal space. b must be non-zero.
func DivCeil(a float64, b float64) int {
	return int(decimal.NewFromFloat(a).Div(decimal.NewFromFloat(b)).Ceil().IntPart())
}
