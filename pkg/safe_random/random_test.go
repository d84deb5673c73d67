package safe_random

import (
	"testing"
)

func TestGenerateRandomBytes(t *testing.T) {
	b, err := GenerateRandomBytes(32)
	if err != nil {
		t.Fatalf("生成随机字节失败: %v", err)
	}
	if len(b) != 32 {
		t.Errorf("期望 32 字节, 实际 %d", len(b))
	}

	// 两次生成不应相同
	b2, _ := GenerateRandomBytes(32)
	same := true
	for i := range b {
		if b[i] != b2[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("两次随机生成结果相同")
	}
}

func TestGenerateRandomHexString(t *testing.T) {
	s, err := GenerateRandomHexString(16)
	if err != nil {
		t.Fatalf("生成随机字符串失败: %v", err)
	}
	if len(s) != 32 {
		t.Errorf("Hex 编码后长度应为 32, 实际 %d", len(s))
	}
}
