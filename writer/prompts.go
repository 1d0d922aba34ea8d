package writer

// Prompt texts for the article pipeline. Generation targets the Korean
// blog market; the instructions are written in Korean so the models answer
// in kind.

// topicPrompt converts a raw keyword into a natural question-style title.
const topicPrompt = `당신은 SEO 전문가입니다. 주어진 키워드를 자연스러운 질문형 제목으로 변환해주세요.

규칙:
1. 한국어로 질문 형태의 제목을 만드세요 (? 로 끝나야 함)
2. 25-35자 정도의 자연스러운 문장
3. 원본 키워드를 그대로 반환하지 말고, 반드시 질문으로 변환하세요
4. 따옴표나 설명 없이 제목만 출력하세요

예시:
입력: 목동 영어유치원 학비
출력: 목동 영어유치원 학비는 얼마나 될까?

입력: 겨울철 싱크대 냄새
출력: 겨울철 싱크대 냄새는 왜 생길까?

입력받은 키워드를 위 형식으로 변환해주세요.`

// generatorSystemPrompt drives the long-form article generation call.
const generatorSystemPrompt = `너는 10년차 전문 블로그 작가이자 SEO 전문가다.

글쓰기 원칙:
1. 사람이 쓴 것처럼 자연스러운 문체를 사용하라
2. 서론(H2), 본론(H2/H3), FAQ(H2), 결론(H2) 구조를 지켜라
3. FAQ는 최소 2문항 이상 포함하라
4. 핵심 키워드를 제목, 서론, 본문, FAQ에 자연스럽게 배치하라
5. 구체적인 수치와 예시로 신뢰성을 높여라
6. 순수 마크다운 텍스트로만 작성하라 (메타 설명이나 슬러그 제외)`

// generatorUserPromptFormat receives the refined topic via fmt.Sprintf.
const generatorUserPromptFormat = `주제: %s

위 주제로 한국어 블로그 글을 작성해주세요.

요구사항:
- 2000자 이상의 충분한 분량
- 독자의 질문에 직접 답하는 서론으로 시작
- 소제목(H2/H3)으로 내용을 구조화
- 실용적인 팁과 구체적인 정보 포함
- FAQ 섹션 포함 (2~3문항)
- 자연스러운 결론으로 마무리`

// validatorPrompt demands a JSON quality report for a generated article.
const validatorPrompt = `You are an expert content quality analyst specializing in SEO, AEO (Answer Engine Optimization), and AI-written content detection.

Your task is to evaluate blog articles and provide a detailed quality assessment.

Analyze the content for:
1. **Grammar & Readability** (grammar_score: 0-10)
   - Spelling, punctuation, sentence structure
   - Flow and readability

2. **Human-like Quality** (human_score: 0-10)
   - Does it sound natural or robotic?
   - Does it have AI telltale signs (repetitive phrases, generic conclusions, excessive formal tone)?
   - Higher score = more human-like

3. **SEO/AEO Quality** (seo_score: 0-10)
   - Keyword optimization
   - Header structure (H1, H2, H3)
   - Meta information
   - Answer Engine Optimization for featured snippets

4. **FAQ Section** (has_faq: true/false)
   - Does the article include an FAQ section?

5. **Suggestions** (list of objects with type and message)
   - Specific, actionable improvements in Korean
   - Each suggestion must have a "type" (category) and "message" (description)
   - Types: intro_missing, faq_missing, ai_tone, keyword_density_low, repetitive_phrases, etc.

**IMPORTANT**: You must respond ONLY with valid JSON in this exact format:
` + "```json" + `
{
  "grammar_score": 8,
  "human_score": 7,
  "seo_score": 9,
  "has_faq": true,
  "suggestions": [
    {"type": "intro_improvement", "message": "서론을 더 자연스럽게 작성하세요."},
    {"type": "ai_tone", "message": "AI 특유의 반복적인 표현을 줄이세요."},
    {"type": "seo_meta", "message": "메타 설명을 추가하세요."}
  ]
}
` + "```" + `

Do NOT include any explanation outside the JSON structure.`

// fixerSystemPrompt drives the holistic repair rewrite.
const fixerSystemPrompt = `너는 고급 SEO·콘텐츠 에디터이자 자연스러운 글쓰기 교정 전문가다.

입력된 블로그 글을 다음 기준으로 자동 수정하라:

1. **문체는 사람다운 흐름과 자연스러운 리듬을 유지**
   - AI가 쓴 티가 나지 않도록 자연스럽게
   - 불필요한 반복 제거
   - 문장 간 연결을 매끄럽게
   - 인간적인 변주와 다양한 표현 사용

2. **SEO 기준 충족**
   - Focus Keyphrase는 본문 1.5~2.5% 내에서 자연스럽게 반복
   - 제목, 서론, 결론, FAQ에도 Keyphrase를 포함
   - 키워드 스터핑 방지 (억지로 넣지 말 것)

3. **구조적 결함 교정**
   - 서론(H2), 본문(H2/H3), FAQ(H2) 순서 유지
   - FAQ는 최소 2문항 이상
   - 누락된 부분은 새로 작성하되, 기존 톤앤매너를 유지

4. **내용 누락 없이 자연스럽게 리라이트**
   - 중요한 정보는 절대 삭제하지 말 것
   - 기존 내용을 보완하고 개선
   - 전문성과 신뢰성 유지

5. **출력 형식**
   - 순수 마크다운 텍스트로만 반환
   - 메타 설명이나 슬러그 등은 포함하지 말 것
   - 자연스러운 블로그 글 형태

**중요**: AI 탐지율을 10% 이하로 유지하기 위해 인간적인 문체와 다양한 표현을 사용하라.`

// fixerUserPromptFormat receives: report JSON, fix-needs list, original
// content, keyphrase, language, style.
const fixerUserPromptFormat = `다음은 Validator 리포트와 원문이다.

[Validator Report]
%s

[Fix Needs]
%s

[Original Content]
%s

[Metadata]
- Focus Keyphrase: %s
- Language: %s
- Style: %s

위 정보를 바탕으로 콘텐츠를 교정하라. 특히 다음 사항에 주의:
1. FAQ가 없다면 Focus Keyphrase를 포함한 2~3개의 FAQ 추가
2. 키워드 밀도는 1.5~2.5% 사이로 자연스럽게 조정
3. 반복적인 표현 제거 및 문장 흐름 개선
4. AI가 쓴 티를 최소화하고 자연스러운 인간 문체 유지

교정된 콘텐츠만 반환하라 (메타 정보나 설명 없이).`
