package depth

import "math"

// 与 PyTorch bicubic 插值一致的卷积系数
const cubicA = -0.75

// ResizeBicubic 把深度图缩放到 width x height。
// 坐标按像素中心对齐（align_corners=false），越界的采样点取边界值。
// 直接在 float32 上计算，保留负值和超出 [0,1] 的数值。
func ResizeBicubic(src Map, width, height int) Map {
	if src.Width == width && src.Height == height {
		dst := NewMap(width, height)
		copy(dst.Data, src.Data)
		return dst
	}

	// 先水平再垂直，可分离
	tmp := make([]float64, src.Height*width)
	xIdx, xW := cubicTaps(src.Width, width)
	for y := 0; y < src.Height; y++ {
		row := src.Data[y*src.Width : (y+1)*src.Width]
		for x := 0; x < width; x++ {
			var v float64
			for k := 0; k < 4; k++ {
				v += float64(row[xIdx[x*4+k]]) * xW[x*4+k]
			}
			tmp[y*width+x] = v
		}
	}

	dst := NewMap(width, height)
	yIdx, yW := cubicTaps(src.Height, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var v float64
			for k := 0; k < 4; k++ {
				v += tmp[yIdx[y*4+k]*width+x] * yW[y*4+k]
			}
			dst.Data[y*width+x] = float32(v)
		}
	}
	return dst
}

// cubicTaps 为每个输出坐标计算 4 个输入下标和对应权重
func cubicTaps(in, out int) ([]int, []float64) {
	idx := make([]int, out*4)
	weights := make([]float64, out*4)
	scale := float64(in) / float64(out)

	for i := 0; i < out; i++ {
		pos := scale*(float64(i)+0.5) - 0.5
		base := math.Floor(pos)
		t := pos - base

		w := [4]float64{
			cubic2(t + 1),
			cubic1(t),
			cubic1(1 - t),
			cubic2(2 - t),
		}
		for k := 0; k < 4; k++ {
			idx[i*4+k] = clamp(int(base)-1+k, 0, in-1)
			weights[i*4+k] = w[k]
		}
	}
	return idx, weights
}

// |x| <= 1
func cubic1(x float64) float64 {
	return ((cubicA+2)*x-(cubicA+3))*x*x + 1
}

// 1 < |x| < 2
func cubic2(x float64) float64 {
	return ((cubicA*x-5*cubicA)*x+8*cubicA)*x - 4*cubicA
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
