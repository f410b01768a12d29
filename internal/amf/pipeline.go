package amf

import (
	"context"
	"image"

	"gocv.io/x/gocv"
)

// treeNode is one manifold in the binary tree: eta holds its centroid
// plane per channel, cluster the full-resolution mask of pixels routed
// to it, and atSrcSize records whether eta is still at full resolution
// (true only for the root before its first downsample, §4.1/§4.7).
type treeNode struct {
	eta       []gocv.Mat
	cluster   gocv.Mat
	level     int
	atSrcSize bool
}

// driver walks the manifold tree for one Apply call, accumulating the
// splat-filter-slice contribution of every node into acc.
type driver struct {
	p       resolved
	joint   []gocv.Mat
	src     []gocv.Mat
	smallSz image.Point
	acc     *accumulators
	tracker treeTracker
}

func newDriver(p resolved, joint, src []gocv.Mat, acc *accumulators, tracker treeTracker) *driver {
	return &driver{
		p:       p,
		joint:   joint,
		src:     src,
		smallSz: image.Pt(p.smallWidth, p.smallHeight),
		acc:     acc,
		tracker: tracker,
	}
}

// run builds the root node from the joint image's row/column blur and
// walks the tree depth-first, honoring ctx cancellation between nodes
// the way the host's ContextualAlgorithm callers expect.
func (d *driver) run(ctx context.Context) error {
	if d.p.useRNG {
		gocv.SetRNGSeed(int(seedState(d.joint)))
	}

	root := treeNode{
		eta:       make([]gocv.Mat, len(d.joint)),
		cluster:   gocv.NewMatWithSize(d.joint[0].Rows(), d.joint[0].Cols(), gocv.MatTypeCV8UC1),
		level:     0,
		atSrcSize: true,
	}
	root.cluster.SetTo(gocv.NewScalar(255, 0, 0, 0))
	for c, jc := range d.joint {
		root.eta[c] = hFilter(jc, d.p.sigmaS)
	}

	return d.visit(ctx, root, true)
}

func (d *driver) visit(ctx context.Context, n treeNode, isRoot bool) error {
	select {
	case <-ctx.Done():
		closeChannels(n.eta)
		n.cluster.Close()
		return ctx.Err()
	default:
	}

	var etaFull []gocv.Mat
	var etaSmall []gocv.Mat
	var derived []gocv.Mat // the resized copy this call allocated; n.eta is the caller-owned original
	if n.atSrcSize {
		etaFull = n.eta
		etaSmall = resizeChannels(n.eta, d.smallSz)
		derived = etaSmall
	} else {
		etaSmall = n.eta
		etaFull = resizeChannels(n.eta, image.Pt(d.joint[0].Cols(), d.joint[0].Rows()))
		derived = etaFull
	}

	wK, d2 := computeWK(etaFull, d.joint, d.p.sigmaROverSqrt2)
	d.acc.updateMinDist(d2, isRoot)
	d2.Close()

	dt := newDomainTransform(etaSmall, float32(d.p.sigmaS)/float32(d.p.df), d.p.sigmaROverSqrt2, d.p.dtIterations)

	wKSmall := resizeChannel(wK, d.smallSz)
	wKBlurSmall := dt.Filter(wKSmall)
	wKSmall.Close()
	wKBlurUp := resizeChannel(wKBlurSmall, image.Pt(d.joint[0].Cols(), d.joint[0].Rows()))
	wKBlurSmall.Close()

	for c := range d.src {
		splat := multiplyChannel(d.src[c], wK)
		splatSmall := resizeChannel(splat, d.smallSz)
		splat.Close()

		blurSmall := dt.Filter(splatSmall)
		splatSmall.Close()

		blurUp := resizeChannel(blurSmall, image.Pt(d.joint[0].Cols(), d.joint[0].Rows()))
		blurSmall.Close()

		d.acc.addWeighted(c, wK, blurUp)
		blurUp.Close()
	}
	denomContribution := multiplyChannel(wK, wKBlurUp)
	d.acc.addWeight(denomContribution)
	denomContribution.Close()

	wKBlurUp.Close()
	dt.Close()

	if n.level >= d.p.treeHeight {
		wK.Close()
		closeChannels(derived)
		closeChannels(n.eta)
		n.cluster.Close()
		return nil
	}

	residual := subtractChannels(d.joint, etaFull)
	v := computeEigenvector(residual, n.cluster, d.p.numPCAIterations, d.p.useRNG)
	minusMask, plusMask := computeClusters(n.cluster, residual, v)
	closeChannels(residual)

	teta := oneMinus(wK)
	wK.Close()

	sigmaSmall := float32(d.p.sigmaS) / float32(d.p.df)
	etaMinus := computeEta(teta, minusMask, d.joint, d.smallSz, sigmaSmall)
	etaPlus := computeEta(teta, plusMask, d.joint, d.smallSz, sigmaSmall)
	teta.Close()

	closeChannels(derived)
	closeChannels(n.eta)
	n.cluster.Close()

	var timingCtx context.Context
	if d.tracker != nil {
		timingCtx = d.tracker.StartTiming("amf.tree.descend")
		defer d.tracker.EndTiming(timingCtx)
	}

	if err := d.visit(ctx, treeNode{eta: etaMinus, cluster: minusMask, level: n.level + 1, atSrcSize: false}, false); err != nil {
		closeChannels(etaPlus)
		plusMask.Close()
		return err
	}
	return d.visit(ctx, treeNode{eta: etaPlus, cluster: plusMask, level: n.level + 1, atSrcSize: false}, false)
}
