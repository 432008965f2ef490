package payments

// EarningsSplit is the exact decomposition of a charged (or refunded) amount.
// PlatformFee + GST + Net always equals the input amount; any rounding
// remainder is absorbed into Net.
type EarningsSplit struct {
	PlatformFee int64
	GST         int64
	Net         int64
}

const bpsDenominator = 10000

// Split decomposes amount (minor units) into platform fee, GST and provider
// net. The fee is ceil(amount * feeBps / 10000), rounding in the platform's
// favour. When chargesGST is set, GST is taken from the post-fee base at
// gstRateBps, rounded down. Both rates are explicit parameters resolved by a
// FeePolicy; nothing here reads ambient configuration.
//
// The same function prorates a refund's fee/provider split by passing the
// refund amount.
func Split(amount int64, feeBps int64, gstRateBps int64, chargesGST bool) EarningsSplit {
	if amount <= 0 {
		return EarningsSplit{}
	}

	fee := (amount*feeBps + bpsDenominator - 1) / bpsDenominator

	var gst int64
	if chargesGST && gstRateBps > 0 {
		gst = (amount - fee) * gstRateBps / bpsDenominator
	}

	return EarningsSplit{
		PlatformFee: fee,
		GST:         gst,
		Net:         amount - fee - gst,
	}
}
