package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/naver-blog-poster/article"
	"github.com/naver-blog-poster/browser"
	"github.com/naver-blog-poster/config"
	"github.com/naver-blog-poster/crawler"
	"github.com/naver-blog-poster/engine"
	"github.com/naver-blog-poster/gemini"
	"github.com/naver-blog-poster/history"
	"github.com/naver-blog-poster/installer"
	"github.com/naver-blog-poster/naver"
	"github.com/naver-blog-poster/pollinations"
	"github.com/naver-blog-poster/session"
	"github.com/naver-blog-poster/trend"
)

var (
	configPath string
	headless   bool
	noImage    bool
	topicFlag  string
	refURL     string
)

func main() {
	root := &cobra.Command{
		Use:           "naver-poster",
		Short:         "AI가 글을 쓰고 네이버 블로그에 발행합니다",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.ini", "설정 파일 경로")

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "주제 선정부터 발행까지 한 번에 실행합니다",
		RunE:  runPost,
	}
	postCmd.Flags().StringVar(&topicFlag, "topic", "", "주제를 직접 지정합니다")
	postCmd.Flags().StringVar(&refURL, "url", "", "참고할 글의 URL (내용을 바탕으로 새 글을 씁니다)")
	postCmd.Flags().BoolVar(&headless, "headless", false, "브라우저 창 없이 실행합니다")
	postCmd.Flags().BoolVar(&noImage, "no-image", false, "이미지 생성을 건너뜁니다")

	batchCmd := &cobra.Command{
		Use:   "batch <디렉토리>",
		Short: "디렉토리의 마크다운 글을 순서대로 발행합니다",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&headless, "headless", false, "브라우저 창 없이 실행합니다")

	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "블로그의 카테고리 목록을 보여줍니다",
		RunE:  runCategories,
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "오래된 세션 파일과 생성 이미지를 정리합니다",
		RunE:  runCleanup,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "설정 파일 템플릿을 생성합니다",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s가 이미 존재합니다", configPath)
			}
			if err := config.WriteTemplate(configPath); err != nil {
				return err
			}
			log.Printf("✅ %s 생성 완료. 값을 채운 뒤 실행하세요.", configPath)
			return nil
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "최근 포스팅 기록을 보여줍니다",
		RunE:  runHistory,
	}

	root.AddCommand(postCmd, batchCmd, categoriesCmd, cleanupCmd, initCmd, historyCmd)

	if err := root.Execute(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func loadConfig() (*config.Config, *session.Manager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := session.NewManager()
	if err != nil {
		return nil, nil, err
	}
	return cfg, mgr, nil
}

// postingSession binds one browser to the login and editor flows; it is the
// unit the engine opens and tears down per attempt.
type postingSession struct {
	b    *browser.Session
	auth *naver.Auth
	pub  *naver.Publisher
}

func (s *postingSession) Login() error {
	if err := s.auth.Login(); err != nil {
		return err
	}
	// Persist cookies right after a successful login so the next run can
	// skip the password form.
	if err := s.b.SaveState(); err != nil {
		log.Printf("⚠️ 세션 저장 실패: %v", err)
	}
	return nil
}

func (s *postingSession) Publish(post *naver.Post) (string, error) {
	return s.pub.Publish(post)
}

func (s *postingSession) Close() {
	s.b.Close()
}

func sessionFactory(cfg *config.Config, mgr *session.Manager, headless bool) func() (engine.Session, error) {
	return func() (engine.Session, error) {
		b, err := browser.Open(browser.Options{
			Headless: headless,
			StateDir: mgr.SessionDir(),
		})
		if err != nil {
			return nil, err
		}
		dom := naver.NewPage(b.Page())
		auth := naver.NewAuth(dom, cfg.Naver.ID, cfg.Naver.Password)
		auth.SetBlogID(cfg.Naver.BlogID)
		return &postingSession{
			b:    b,
			auth: auth,
			pub:  naver.NewPublisher(dom, auth.BlogID()),
		}, nil
	}
}

func newGeminiClient(cfg *config.Config) (*gemini.Client, error) {
	client := gemini.NewClient(cfg.Gemini.APIKey)
	client.SetRPM(cfg.Gemini.RPM)
	if cfg.Gemini.PromptFile != "" {
		prompts, err := gemini.LoadPrompts(cfg.Gemini.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("프롬프트 파일을 읽을 수 없습니다: %v", err)
		}
		client.SetPrompts(prompts)
	}
	return client, nil
}

// imageSource adapts the pollinations client to the engine's narrower view.
type imageSource struct {
	c *pollinations.Client
}

func (i imageSource) GenerateForKoreanTopic(topic, extraStyle string) (string, error) {
	res, err := i.c.GenerateForKoreanTopic(topic, extraStyle)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

func runPost(cmd *cobra.Command, args []string) error {
	cfg, mgr, err := loadConfig()
	if err != nil {
		return err
	}
	if err := installer.EnsurePlaywrightInstalled(); err != nil {
		return fmt.Errorf("playwright 설치 실패: %v", err)
	}

	gen, err := newGeminiClient(cfg)
	if err != nil {
		return err
	}

	opts := engine.Options{
		Category:   cfg.Posting.Category,
		Keywords:   cfg.Posting.Keywords,
		UseImage:   cfg.Posting.UseImage && !noImage,
		UseEmoji:   cfg.Posting.UseEmoji,
		MinLength:  cfg.Posting.MinLength,
		MaxLength:  cfg.Posting.MaxLength,
		MaxRetries: cfg.Posting.MaxRetries,
	}
	if topicFlag != "" {
		opts.Keywords = []string{topicFlag}
	}
	if refURL != "" {
		ref, err := crawler.NewCrawler().Crawl(refURL)
		if err != nil {
			return fmt.Errorf("참고 URL을 읽을 수 없습니다: %v", err)
		}
		log.Printf("📖 참고 글: %s", ref.Title)
		opts.Reference = ref.Markdown
		if topicFlag == "" && len(opts.Keywords) == 0 {
			opts.Keywords = []string{ref.Title}
		}
	}
	if headless || cfg.Posting.Headless {
		headless = true
	}

	e := engine.New(gen, imageSource{pollinations.NewClient(mgr.ImagesDir())},
		trend.NewCollector(), sessionFactory(cfg, mgr, headless), opts)
	// Lets a stop request cut short Gemini's quota waits.
	gen.SetStopProbe(e.Stopping)

	store, err := history.Open(mgr.HistoryPath())
	if err != nil {
		log.Printf("⚠️ 기록 DB를 열 수 없습니다 (기록 없이 진행): %v", err)
	} else {
		defer store.Close()
		e.SetRecorder(store)
		e.SetDuplicateProbe(func(topic string) bool {
			dup, _ := store.PostedRecently(topic, 72*time.Hour)
			return dup
		})
	}

	// Ctrl+C asks the engine to stop at the next stage boundary; a second
	// one kills the process the usual way.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("⏹️ 중단 요청을 받았습니다. 현재 단계가 끝나면 멈춥니다...")
		e.Stop()
		signal.Stop(sigs)
	}()

	result, err := e.Run()
	if err != nil {
		return err
	}
	log.Printf("🎉 발행 완료: %s", result.URL)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, mgr, err := loadConfig()
	if err != nil {
		return err
	}

	parser := article.NewParser(args[0])
	articles, err := parser.ParseAll()
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return fmt.Errorf("%s에 .md 파일이 없습니다", args[0])
	}
	log.Printf("✅ %d개의 글을 읽었습니다", len(articles))

	if err := installer.EnsurePlaywrightInstalled(); err != nil {
		return fmt.Errorf("playwright 설치 실패: %v", err)
	}
	if headless || cfg.Posting.Headless {
		headless = true
	}

	posts := make([]*naver.Post, 0, len(articles))
	for _, art := range articles {
		posts = append(posts, &naver.Post{
			Title:  art.Title,
			Body:   art.Body,
			Tags:   art.Tags,
			Images: art.ImagePaths(),
		})
	}

	pub := engine.NewPublisher(sessionFactory(cfg, mgr, headless))
	pub.Logger = func(msg string) { log.Print(msg) }
	results := pub.BatchPost(posts, time.Duration(cfg.Posting.PostDelay)*time.Second)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d/%d개 발행 실패", failed, len(results))
	}
	log.Printf("🎉 %d개 모두 발행 완료", len(results))
	return nil
}

func runCategories(cmd *cobra.Command, args []string) error {
	cfg, mgr, err := loadConfig()
	if err != nil {
		return err
	}
	if err := installer.EnsurePlaywrightInstalled(); err != nil {
		return fmt.Errorf("playwright 설치 실패: %v", err)
	}

	s, err := sessionFactory(cfg, mgr, true)()
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Login(); err != nil {
		return err
	}

	for _, c := range s.(*postingSession).pub.Categories() {
		fmt.Printf("%s\t%s\n", c.ID, c.Name)
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	_, mgr, err := loadConfig()
	if err != nil {
		return err
	}

	if err := mgr.CleanOldSessions(30 * 24 * time.Hour); err != nil {
		return err
	}
	removed := pollinations.NewClient(mgr.ImagesDir()).CleanOld(7)
	log.Printf("✅ 정리 완료 (이미지 %d개 삭제)", removed)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	_, mgr, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(mgr.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(20)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Println("기록이 없습니다")
		return nil
	}
	for _, r := range records {
		status := "✅"
		if r.URL == "" {
			status = "❌"
		}
		fmt.Printf("%s %s  %s  %s\n", status,
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Title, r.URL)
	}
	return nil
}
